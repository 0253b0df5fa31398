// Package huggingface classifies images with the Hugging Face inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/compario/backend/internal/domain"
	"github.com/compario/backend/internal/infrastructure/vision"
)

const (
	// DefaultModelURL is the primary image classification model
	DefaultModelURL = "https://api-inference.huggingface.co/models/facebook/deit-base-distilled-patch16-224"

	maxLabels = 5

	msgStillLoading   = "Model is still loading. Please try again in a few moments."
	msgTimeout        = "Request timeout. Please try again."
	msgEmptyResponse  = "Empty response from Hugging Face API"
	msgUnexpectedBody = "Unexpected response format from Hugging Face API"
)

// DefaultFallbackURLs are tried in order when a model is gone
var DefaultFallbackURLs = []string{
	"https://api-inference.huggingface.co/models/google/vit-base-patch16-224",
	"https://api-inference.huggingface.co/models/microsoft/swin-base-patch4-window7-224",
}

// Config holds Hugging Face inference configuration
type Config struct {
	APIToken     string
	ModelURL     string
	FallbackURLs []string
	MaxRetries   int
	RetryDelay   time.Duration
	TimeoutDelay time.Duration
	Timeout      time.Duration
}

// Client calls an image classification model
type Client struct {
	httpClient   *http.Client
	apiToken     string
	modelURL     string
	fallbackURLs []string
	maxRetries   int
	retryDelay   time.Duration
	timeoutDelay time.Duration
	logger       zerolog.Logger
}

type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewClient creates a new Hugging Face client. The token is optional.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.ModelURL == "" {
		cfg.ModelURL = DefaultModelURL
	}
	if cfg.FallbackURLs == nil {
		cfg.FallbackURLs = DefaultFallbackURLs
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.TimeoutDelay < 0 {
		cfg.TimeoutDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	logger = logger.With().Str("provider", domain.ProviderHuggingFace).Logger()
	if cfg.APIToken == "" {
		logger.Info().Msg("no Hugging Face token configured, using the public inference API")
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		apiToken:     cfg.APIToken,
		modelURL:     cfg.ModelURL,
		fallbackURLs: cfg.FallbackURLs,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		timeoutDelay: cfg.TimeoutDelay,
		logger:       logger,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return domain.ProviderHuggingFace
}

// DetectProduct classifies the image and maps the top label to a product name.
// A warming model (503) is retried after RetryDelay; a missing model
// (404/410) switches to the next fallback URL. Both count as attempts.
func (c *Client) DetectProduct(ctx context.Context, image []byte) (*domain.ProductIdentification, error) {
	modelURL := c.modelURL
	nextFallback := 0

	var results []classification
	attempt := 0
	for attempt < c.maxRetries {
		status, body, err := c.post(ctx, modelURL, image)
		if err != nil {
			if ctx.Err() != nil {
				return nil, providerError(fmt.Sprintf("Failed to connect to Hugging Face API: %v", ctx.Err()), 0, ctx.Err())
			}
			if !isTimeout(err) {
				c.logger.Error().Err(err).Msg("request error")
				return nil, providerError(fmt.Sprintf("Failed to connect to Hugging Face API: %v", err), 0, err)
			}
			attempt++
			if attempt >= c.maxRetries {
				return nil, providerError(msgTimeout, 0, err)
			}
			c.logger.Warn().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("timeout, retrying")
			if err := vision.Sleep(ctx, c.timeoutDelay); err != nil {
				return nil, providerError(msgTimeout, 0, err)
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, &results); err != nil {
				c.logger.Error().Str("body", vision.Truncate(string(body), vision.MaxLoggedBody)).Msg("unexpected response")
				return nil, providerError(msgUnexpectedBody, status, err)
			}
			return c.identify(results)

		case status == http.StatusServiceUnavailable:
			attempt++
			c.logger.Warn().Int("attempt", attempt).Int("max_retries", c.maxRetries).Dur("wait", c.retryDelay).Msg("model loading")
			if err := vision.Sleep(ctx, c.retryDelay); err != nil {
				return nil, providerError(msgStillLoading, status, err)
			}
			continue

		case (status == http.StatusNotFound || status == http.StatusGone) && nextFallback < len(c.fallbackURLs):
			c.logger.Warn().Int("fallback", nextFallback+1).Str("model_url", c.fallbackURLs[nextFallback]).Msg("model unavailable, trying fallback")
			modelURL = c.fallbackURLs[nextFallback]
			nextFallback++
			attempt++
			continue
		}

		msg := errorMessage(status, body)
		c.logger.Error().Int("status", status).Str("error", msg).Msg("Hugging Face API error")
		return nil, providerError("Hugging Face API error: "+msg, status, nil)
	}

	return nil, providerError(msgStillLoading, http.StatusServiceUnavailable, nil)
}

func (c *Client) post(ctx context.Context, modelURL string, image []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, modelURL, bytes.NewReader(image))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	c.logger.Info().Str("model_url", modelURL).Msg("calling Hugging Face API")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) identify(results []classification) (*domain.ProductIdentification, error) {
	if len(results) == 0 {
		c.logger.Error().Msg("empty response")
		return nil, providerError(msgEmptyResponse, http.StatusOK, nil)
	}

	top := results[0]
	label := top.Label
	if label == "" {
		label = domain.UnknownProduct
	}

	result := domain.NewProductIdentification()
	result.DisplayName = CleanLabel(label)
	result.Confidence = math.Round(top.Score*100*100) / 100
	result.Source = domain.ProviderHuggingFace
	for i, r := range results {
		if i == maxLabels {
			break
		}
		result.Labels = append(result.Labels, r.Label)
	}

	c.logger.Info().Str("product_name", result.DisplayName).Float64("confidence", result.Confidence).Msg("Hugging Face success")
	return result, nil
}

// errorMessage pulls the error text out of a failed response
func errorMessage(status int, body []byte) string {
	var asObject struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &asObject) == nil && asObject.Error != "" {
		return asObject.Error
	}

	var asString string
	if json.Unmarshal(body, &asString) == nil && asString != "" {
		return asString
	}

	if len(body) > 0 {
		return vision.Truncate(string(body), vision.MaxLoggedBody)
	}
	return fmt.Sprintf("API returned status %d", status)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func providerError(msg string, status int, err error) error {
	return domain.NewProviderError(domain.ProviderHuggingFace, msg, status, err)
}

// labelProducts maps ImageNet vocabulary to shopper-friendly names. The
// first key contained in the label wins.
var labelProducts = []struct {
	key, name string
}{
	{"laptop computer", "Laptop"},
	{"desktop computer", "Desktop Computer"},
	{"mobile phone", "Smartphone"},
	{"cellular telephone", "Smartphone"},
	{"ipod", "MP3 Player"},
	{"television", "TV"},
	{"monitor", "Computer Monitor"},
	{"keyboard", "Keyboard"},
	{"mouse", "Computer Mouse"},
	{"printer", "Printer"},
	{"camera", "Camera"},
	{"headphone", "Headphones"},
	{"speaker", "Speaker"},
	{"watch", "Watch"},
	{"sunglass", "Sunglasses"},
	{"backpack", "Backpack"},
	{"handbag", "Handbag"},
	{"suitcase", "Suitcase"},
	{"bottle", "Bottle"},
	{"cup", "Cup"},
	{"bowl", "Bowl"},
	{"plate", "Plate"},
}

// CleanLabel turns a classifier label into a product name
func CleanLabel(label string) string {
	label = strings.TrimSpace(label)
	lower := strings.ToLower(label)
	for _, article := range []string{"a ", "an "} {
		if strings.HasPrefix(lower, article) {
			label = label[len(article):]
			lower = lower[len(article):]
			break
		}
	}

	for _, m := range labelProducts {
		if strings.Contains(lower, m.key) {
			return m.name
		}
	}

	parts := strings.Split(label, "_")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

// capitalize upper-cases the first rune and lower-cases the rest
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := []rune(strings.ToLower(s))
	lower[0] = []rune(strings.ToUpper(string(lower[0])))[0]
	return string(lower)
}
