// Package token issues and validates HS256 signed access/refresh tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/compario/backend/internal/domain"
)

// Token types carried in the token_type claim
const (
	TypeAccess  = domain.TokenTypeAccess
	TypeRefresh = domain.TokenTypeRefresh
)

// Config holds token signing configuration
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// claims is the JWT payload
type claims struct {
	TokenType string `json:"token_type"`
	UserID    uint   `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager implements domain.TokenManager
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// NewManager creates a token manager. The secret must not be empty.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 60 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "compario"
	}

	return &Manager{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}, nil
}

// IssuePair signs a fresh access and refresh token for the user
func (m *Manager) IssuePair(userID uint) (*domain.TokenPair, error) {
	access, err := m.sign(userID, TypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, TypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *Manager) sign(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	c := claims{
		TokenType: tokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Parse validates signature, expiry and type. Any failure is reported as
// domain.ErrInvalidToken.
func (m *Manager) Parse(tokenString, expectedType string) (*domain.TokenClaims, error) {
	var c claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	// Expiry is checked below against the manager clock
	parser.SkipClaimsValidation = true
	if _, err := parser.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if c.ExpiresAt == nil || !m.now().Before(c.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
	}
	if c.Issuer != m.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrInvalidToken, c.Issuer)
	}
	if c.TokenType != expectedType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", domain.ErrInvalidToken, expectedType, c.TokenType)
	}
	if c.ID == "" || c.UserID == 0 {
		return nil, fmt.Errorf("%w: missing claims", domain.ErrInvalidToken)
	}

	return &domain.TokenClaims{
		UserID:    c.UserID,
		TokenID:   c.ID,
		TokenType: c.TokenType,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
