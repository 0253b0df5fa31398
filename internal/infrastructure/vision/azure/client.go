// Package azure detects products from the printed text Azure Computer
// Vision finds in the image.
package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/rs/zerolog"

	"github.com/compario/backend/internal/domain"
)

const msgConnectFailed = "Failed to connect to Azure Computer Vision"

// Config holds Azure Computer Vision configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDuration time.Duration
}

// Client runs OCR through Azure Cognitive Services
type Client struct {
	client    computervision.BaseClient
	timeout   time.Duration
	extractor domain.AttributeExtractor
	logger    zerolog.Logger
}

// NewClient creates a new Azure OCR client. Endpoint and key are required.
func NewClient(cfg Config, extractor domain.AttributeExtractor, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("azure computer vision endpoint and key are not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := computervision.New(strings.TrimRight(cfg.Endpoint, "/"))
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)
	if cfg.RetryAttempts > 0 {
		client.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDuration > 0 {
		client.RetryDuration = cfg.RetryDuration
	}

	return &Client{
		client:    client,
		timeout:   cfg.Timeout,
		extractor: extractor,
		logger:    logger.With().Str("provider", domain.ProviderAzure).Logger(),
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return domain.ProviderAzure
}

// DetectProduct recognizes printed text and extracts the product identity
func (c *Client) DetectProduct(ctx context.Context, image []byte) (*domain.ProductIdentification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(image)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return nil, c.providerError(err)
	}

	payload := payloadFromOCR(result)
	c.logger.Debug().Int("text_blocks", len(payload.TextBlocks)).Msg("ocr completed")

	identified := c.extractor.Extract(payload)
	identified.Source = domain.ProviderAzure
	return identified, nil
}

func (c *Client) providerError(err error) error {
	var detailed autorest.DetailedError
	if errors.As(err, &detailed) {
		status, _ := detailed.StatusCode.(int)
		c.logger.Error().Err(err).Int("status", status).Msg("ocr request failed")
		if status != 0 {
			return domain.NewProviderError(domain.ProviderAzure, fmt.Sprintf("API Error: %d", status), status, err)
		}
	}

	c.logger.Error().Err(err).Msg("ocr request failed")
	return domain.NewProviderError(domain.ProviderAzure, msgConnectFailed, 0, err)
}

// payloadFromOCR flattens OCR regions into text blocks: the full text
// first, then every word
func payloadFromOCR(result computervision.OcrResult) *domain.AnnotationPayload {
	var lines []string
	var words []domain.TextAnnotation

	if result.Regions != nil {
		for _, region := range *result.Regions {
			if region.Lines == nil {
				continue
			}
			for _, line := range *region.Lines {
				if line.Words == nil {
					continue
				}
				var lineText strings.Builder
				for _, word := range *line.Words {
					if word.Text == nil || *word.Text == "" {
						continue
					}
					lineText.WriteString(*word.Text)
					lineText.WriteString(" ")
					words = append(words, domain.TextAnnotation{Description: *word.Text})
				}
				if text := strings.TrimSpace(lineText.String()); text != "" {
					lines = append(lines, text)
				}
			}
		}
	}

	payload := &domain.AnnotationPayload{}
	if len(lines) == 0 {
		return payload
	}

	locale := ""
	if result.Language != nil {
		locale = *result.Language
	}
	payload.TextBlocks = append(payload.TextBlocks, domain.TextAnnotation{
		Description: strings.Join(lines, "\n"),
		Locale:      locale,
	})
	payload.TextBlocks = append(payload.TextBlocks, words...)
	return payload
}
