// Package cache provides the key/value stores behind the token blacklist and
// the detection result cache.
package cache

import (
	"context"
	"fmt"
	"io"

	"github.com/compario/backend/config"
	"github.com/compario/backend/internal/domain"
)

// Store is a cache that owns resources which must be released on shutdown
type Store interface {
	domain.CacheRepository
	io.Closer
}

// New builds the cache selected by configuration
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(0), nil
	case "redis":
		return NewRedisCache(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
