// Package google detects products with the Google Cloud Vision
// images:annotate API.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/compario/backend/internal/domain"
	"github.com/compario/backend/internal/infrastructure/vision"
)

const (
	defaultBaseURL = "https://vision.googleapis.com"
	annotatePath   = "/v1/images:annotate"

	// invalidArgument is the per-image error code returned for unsupported features
	invalidArgument = 3

	msgConnectFailed = "Failed to connect to Google Vision API"
)

// Feature is one detection type requested from the API
type Feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

// DefaultFeatures are requested for every image
var DefaultFeatures = []Feature{
	{Type: "LABEL_DETECTION", MaxResults: 30},
	{Type: "OBJECT_LOCALIZATION", MaxResults: 15},
	{Type: "WEB_DETECTION", MaxResults: 15},
	{Type: "TEXT_DETECTION", MaxResults: 50},
	{Type: "LOGO_DETECTION", MaxResults: 10},
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []Feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type annotateResponse struct {
	Responses []domain.AnnotationPayload `json:"responses"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Config holds Google Vision client configuration
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
	RetryBackoff      time.Duration // zero means DefaultRetryBackoff, negative disables

	// Limiter is shared by every client built for the process. When nil a
	// private limiter is created from RequestsPerMinute.
	Limiter *rate.Limiter
}

// DefaultRetryBackoff is multiplied by the attempt number between retries
const DefaultRetryBackoff = 500 * time.Millisecond

// NewLimiter returns a limiter allowing requestsPerMinute calls with a
// burst of at most 10
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	burst := requestsPerMinute
	if burst > 10 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst)
}

// Client handles communication with the Google Vision API
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	rateLimiter  *rate.Limiter
	maxAttempts  int
	retryBackoff time.Duration
	extractor    domain.AttributeExtractor
	logger       zerolog.Logger
}

// NewClient creates a new Google Vision client. An empty API key is an
// initialization error.
func NewClient(cfg Config, extractor domain.AttributeExtractor, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("google vision API key is not configured (set GOOGLE_VISION_API_KEY)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	switch {
	case cfg.RetryBackoff == 0:
		cfg.RetryBackoff = DefaultRetryBackoff
	case cfg.RetryBackoff < 0:
		cfg.RetryBackoff = 0
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewLimiter(cfg.RequestsPerMinute)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter:  cfg.Limiter,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		extractor:    extractor,
		logger:       logger.With().Str("provider", domain.ProviderGoogle).Logger(),
	}, nil
}

// Name returns the provider name
func (c *Client) Name() string {
	return domain.ProviderGoogle
}

// DetectProduct annotates the image and extracts the product identity
func (c *Client) DetectProduct(ctx context.Context, image []byte) (*domain.ProductIdentification, error) {
	features := DefaultFeatures

	payload, err := c.annotate(ctx, image, features)
	if err != nil {
		return nil, err
	}

	if isLogoUnsupported(payload.Error) {
		c.logger.Warn().Msg("LOGO_DETECTION not available, retrying without it")
		features = withoutFeature(features, "LOGO_DETECTION")
		payload, err = c.annotate(ctx, image, features)
		if err != nil {
			return nil, err
		}
	}

	if payload.Error != nil {
		c.logger.Error().Int("code", payload.Error.Code).Str("message", payload.Error.Message).Msg("image annotation failed")
		return nil, domain.NewProviderError(domain.ProviderGoogle, payload.Error.Message, 0, nil)
	}

	result := c.extractor.Extract(payload)
	result.Source = domain.ProviderGoogle

	c.logger.Info().
		Str("product_name", result.DisplayName).
		Interface("brand", result.Brand).
		Interface("size", result.Size).
		Msg("vision API success")

	return result, nil
}

// annotate sends one images:annotate request, retrying transient failures
func (c *Client) annotate(ctx context.Context, image []byte, features []Feature) (*domain.AnnotationPayload, error) {
	body, err := json.Marshal(annotateRequest{
		Requests: []imageRequest{{
			Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: features,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotate request: %w", err)
	}

	params := url.Values{}
	params.Add("key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, annotatePath, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		payload, retry, err := c.post(ctx, reqURL, body, attempt)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retry || attempt == c.maxAttempts {
			break
		}
		if err := vision.Sleep(ctx, time.Duration(attempt)*c.retryBackoff); err != nil {
			return nil, domain.NewProviderError(domain.ProviderGoogle, msgConnectFailed, 0, err)
		}
	}

	return nil, lastErr
}

// post performs a single request. The returned bool reports whether the
// failure is worth retrying.
func (c *Client) post(ctx context.Context, reqURL string, body []byte, attempt int) (*domain.AnnotationPayload, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Compario/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("vision API request error")
		return nil, ctx.Err() == nil, domain.NewProviderError(domain.ProviderGoogle, msgConnectFailed, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, domain.NewProviderError(domain.ProviderGoogle, msgConnectFailed, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("attempt", attempt).
			Int("status", resp.StatusCode).
			Str("body", vision.Truncate(string(respBody), vision.MaxLoggedBody)).
			Msg("vision API error")

		msg := fmt.Sprintf("API Error: %d", resp.StatusCode)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, domain.NewProviderError(domain.ProviderGoogle, msg, resp.StatusCode, nil)
	}

	var decoded annotateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, false, fmt.Errorf("failed to decode annotate response: %w", err)
	}
	if len(decoded.Responses) == 0 {
		return &domain.AnnotationPayload{}, false, nil
	}
	return &decoded.Responses[0], false, nil
}

func isLogoUnsupported(e *domain.AnnotationError) bool {
	return e != nil && e.Code == invalidArgument && strings.Contains(e.Message, "LOGO_DETECTION")
}

func withoutFeature(features []Feature, featureType string) []Feature {
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		if f.Type != featureType {
			out = append(out, f)
		}
	}
	return out
}
