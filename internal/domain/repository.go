package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductDetector submits image bytes to a recognition backend and returns
// the normalized product identity. The image is already validated.
type ProductDetector interface {
	Name() string
	DetectProduct(ctx context.Context, image []byte) (*ProductIdentification, error)
}

// AttributeExtractor turns a raw annotation payload into a product identity.
// Implementations never fail.
type AttributeExtractor interface {
	Extract(payload *AnnotationPayload) *ProductIdentification
}

// HistoryRepository persists search history entries scoped to their owner
type HistoryRepository interface {
	Create(ctx context.Context, entry *SearchHistoryEntry) error
	ListRecent(ctx context.Context, userID uint, limit int) ([]SearchHistoryEntry, error)
	LatestTimestamp(ctx context.Context, userID uint) (time.Time, error)
	DeleteOwned(ctx context.Context, userID, entryID uint) error
	DeleteAllOwned(ctx context.Context, userID uint) (int64, error)
}

// UserRepository persists user accounts
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}

// TokenManager issues and validates signed session tokens
type TokenManager interface {
	IssuePair(userID uint) (*TokenPair, error)
	Parse(token, expectedType string) (*TokenClaims, error)
}
