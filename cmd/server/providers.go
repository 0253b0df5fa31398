package main

import (
	"github.com/rs/zerolog"

	"github.com/compario/backend/config"
	"github.com/compario/backend/internal/domain"
	"github.com/compario/backend/internal/infrastructure/vision/azure"
	"github.com/compario/backend/internal/infrastructure/vision/google"
	"github.com/compario/backend/internal/infrastructure/vision/huggingface"
	"github.com/compario/backend/internal/infrastructure/vision/simple"
	"github.com/compario/backend/internal/usecase"
)

// newVisionService builds the provider chain. Constructors run per request
// so credential and flag changes apply without a restart.
func newVisionService(cfg *config.Config, store domain.CacheRepository, logger zerolog.Logger) *usecase.VisionService {
	extractor := usecase.NewExtractor(logger)

	// Clients are rebuilt per request, the Google quota is not
	googleLimiter := google.NewLimiter(cfg.RateLimit.Vision)

	constructors := usecase.ProviderConstructors{
		Simple: func() (domain.ProductDetector, error) {
			return simple.NewDetector(logger), nil
		},
		Google: func() (domain.ProductDetector, error) {
			return google.NewClient(google.Config{
				APIKey:            cfg.GoogleAPIKey(),
				BaseURL:           cfg.Google.BaseURL,
				Timeout:           cfg.Vision.Timeout,
				RequestsPerMinute: cfg.RateLimit.Vision,
				MaxAttempts:       cfg.Google.MaxAttempts,
				RetryBackoff:      cfg.Google.RetryBackoff,
				Limiter:           googleLimiter,
			}, extractor, logger)
		},
		Azure: func() (domain.ProductDetector, error) {
			return azure.NewClient(azure.Config{
				Endpoint:      cfg.Azure.Endpoint,
				APIKey:        cfg.Azure.APIKey,
				Timeout:       cfg.Vision.Timeout,
				RetryAttempts: cfg.Azure.RetryAttempts,
				RetryDuration: cfg.Azure.RetryDuration,
			}, extractor, logger)
		},
		HuggingFace: func() (domain.ProductDetector, error) {
			return huggingface.NewClient(huggingface.Config{
				APIToken:     cfg.HuggingFace.APIToken,
				ModelURL:     cfg.HuggingFace.ModelURL,
				FallbackURLs: cfg.HuggingFace.FallbackURLs,
				MaxRetries:   cfg.HuggingFace.MaxRetries,
				RetryDelay:   cfg.HuggingFace.RetryDelay,
				TimeoutDelay: cfg.HuggingFace.TimeoutDelay,
				Timeout:      cfg.Vision.Timeout,
			}, logger), nil
		},
	}

	return usecase.NewVisionService(
		usecase.DefaultChain(constructors),
		cfg,
		store,
		usecase.VisionServiceConfig{CacheTTL: cfg.Cache.TTL},
		logger,
	)
}
