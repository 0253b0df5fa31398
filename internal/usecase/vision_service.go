package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compario/backend/config"
	"github.com/compario/backend/internal/domain"
)

// Provider names of the default chain
const (
	ProviderSimple      = domain.ProviderSimple
	ProviderGoogle      = domain.ProviderGoogle
	ProviderAzure       = domain.ProviderAzure
	ProviderHuggingFace = domain.ProviderHuggingFace
)

// FlagSource supplies the provider selection flags for one request
type FlagSource interface {
	VisionFlags() config.VisionFlags
}

// ProviderFactory lazily builds one candidate of the provider chain
type ProviderFactory struct {
	Name    string
	Enabled func(config.VisionFlags) bool
	New     func() (domain.ProductDetector, error)
}

// ProviderConstructors builds each known provider. A nil constructor leaves
// that provider out of the chain.
type ProviderConstructors struct {
	Simple      func() (domain.ProductDetector, error)
	Google      func() (domain.ProductDetector, error)
	Azure       func() (domain.ProductDetector, error)
	HuggingFace func() (domain.ProductDetector, error)
}

// DefaultChain orders the providers: explicit simple override, the
// commercial providers, the community inference API, then the local
// heuristic as last resort.
func DefaultChain(c ProviderConstructors) []ProviderFactory {
	return []ProviderFactory{
		{
			Name:    ProviderSimple,
			Enabled: func(f config.VisionFlags) bool { return f.UseSimpleFallback },
			New:     c.Simple,
		},
		{
			Name:    ProviderGoogle,
			Enabled: func(f config.VisionFlags) bool { return f.UseGoogle },
			New:     c.Google,
		},
		{
			Name:    ProviderAzure,
			Enabled: func(f config.VisionFlags) bool { return f.UseAzure },
			New:     c.Azure,
		},
		{
			Name:    ProviderHuggingFace,
			Enabled: func(f config.VisionFlags) bool { return f.UseHuggingFace },
			New:     c.HuggingFace,
		},
		{
			Name:    ProviderSimple,
			Enabled: func(f config.VisionFlags) bool { return f.EnableLocalFallback },
			New:     c.Simple,
		},
	}
}

// VisionServiceConfig holds configuration for the vision service
type VisionServiceConfig struct {
	CacheTTL time.Duration
}

// VisionService picks a provider per request and caches its results
type VisionService struct {
	chain    []ProviderFactory
	flags    FlagSource
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewVisionService creates a new vision service with dependencies
func NewVisionService(
	chain []ProviderFactory,
	flags FlagSource,
	cache domain.CacheRepository,
	cfg VisionServiceConfig,
	logger zerolog.Logger,
) *VisionService {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &VisionService{
		chain:    chain,
		flags:    flags,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "vision").Logger(),
	}
}

// Detect identifies the product in an already validated image.
// Flow: select provider -> check cache -> detect -> cache -> return
func (s *VisionService) Detect(ctx context.Context, image []byte) (*domain.ProductIdentification, error) {
	detector, err := s.SelectProvider()
	if err != nil {
		return nil, err
	}
	name := detector.Name()

	cacheKey := detectionCacheKey(name, image)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		s.logger.Debug().Str("provider", name).Msg("detection served from cache")
		return cached, nil
	}

	result, err := detector.DetectProduct(ctx, image)
	if err != nil {
		var providerErr *domain.ProviderError
		if !errors.As(err, &providerErr) {
			err = domain.NewProviderError(name, "Error processing image", 0, err)
		}
		s.logger.Warn().Err(err).Str("provider", name).Msg("detection failed")
		return nil, err
	}
	if result.Source == "" {
		result.Source = name
	}

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache detection")
	}

	s.logger.Info().
		Str("provider", name).
		Str("product_name", result.DisplayName).
		Float64("confidence", result.Confidence).
		Msg("product detected")

	return result, nil
}

// SelectProvider walks the chain with the current flags and returns the
// first provider that initializes. Initialization failures step down to the
// next candidate.
func (s *VisionService) SelectProvider() (domain.ProductDetector, error) {
	flags := s.flags.VisionFlags()

	for _, candidate := range s.chain {
		if candidate.New == nil || candidate.Enabled == nil || !candidate.Enabled(flags) {
			continue
		}

		detector, err := candidate.New()
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", candidate.Name).Msg("provider unavailable, trying next")
			continue
		}
		return detector, nil
	}

	s.logger.Error().Interface("flags", flags).Msg("no vision provider could be initialized")
	return nil, domain.ErrProviderUnavailable
}

// detectionCacheKey creates a cache key from provider name and image digest.
// Format: "detection:{provider}:{sha256}"
func detectionCacheKey(provider string, image []byte) string {
	sum := sha256.Sum256(image)
	return fmt.Sprintf("detection:%s:%s", provider, hex.EncodeToString(sum[:]))
}

func (s *VisionService) getFromCache(ctx context.Context, key string) (*domain.ProductIdentification, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, err
	}

	var result domain.ProductIdentification
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached detection: %w", err)
	}
	return &result, nil
}

func (s *VisionService) setInCache(ctx context.Context, key string, result *domain.ProductIdentification) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode detection: %w", err)
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
