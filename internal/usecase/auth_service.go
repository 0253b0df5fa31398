package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/compario/backend/internal/domain"
)

const (
	minPasswordLen  = 8
	maxNameLen      = 150
	blacklistPrefix = "blacklist:"
)

// Auth field messages
const (
	msgInvalidEmail        = "Enter a valid email address."
	msgEmailTaken          = "A user with this email already exists."
	msgPasswordMismatch    = "Passwords do not match."
	msgNewPasswordMismatch = "New passwords do not match."
	msgOldPasswordWrong    = "Old password is incorrect."
	msgPasswordNumeric     = "This password is entirely numeric."
)

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	BcryptCost int
}

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	users      domain.UserRepository
	tokens     domain.TokenManager
	blacklist  domain.CacheRepository
	validate   *validator.Validate
	bcryptCost int
	now        func() time.Time
	logger     zerolog.Logger
}

// NewAuthService creates a new auth service with dependencies
func NewAuthService(
	users domain.UserRepository,
	tokens domain.TokenManager,
	blacklist domain.CacheRepository,
	cfg AuthServiceConfig,
	logger zerolog.Logger,
) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		blacklist:  blacklist,
		validate:   validator.New(),
		bcryptCost: cost,
		now:        time.Now,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Signup registers a new account and issues its first token pair
func (s *AuthService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, *domain.TokenPair, error) {
	email := normalizeEmail(req.Email)

	verr := domain.NewValidationError()
	s.validateEmail(verr, req.Email, email)
	if req.Password == "" {
		verr.Add("password", msgRequired)
	} else {
		validatePassword(verr, "password", req.Password)
	}
	if req.PasswordConfirm == "" {
		verr.Add("password_confirm", msgRequired)
	}
	validateName(verr, "first_name", req.FirstName)
	validateName(verr, "last_name", req.LastName)
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	if req.Password != req.PasswordConfirm {
		verr.Add("password_confirm", msgPasswordMismatch)
		return nil, nil, verr
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		verr.Add("email", msgEmailTaken)
		return nil, nil, verr
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
		DateJoined:   s.now().UTC(),
		Country:      domain.DefaultCountry,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			verr.Add("email", msgEmailTaken)
			return nil, nil, verr
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return user, pair, nil
}

// Login checks credentials, records the login time and issues a token pair
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	verr := domain.NewValidationError()
	if strings.TrimSpace(email) == "" {
		verr.Add("email", msgRequired)
	}
	if password == "" {
		verr.Add("password", msgRequired)
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, domain.ErrAccountInactive
	}

	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to record login: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user logged in")
	return user, pair, nil
}

// Logout blacklists the refresh token so it can no longer be used
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}

	s.logger.Info().Uint("user_id", claims.UserID).Msg("user logged out")
	return nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token is blacklisted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.tokens.IssuePair(user.ID)
}

// Authenticate resolves an access token to its active user
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.Parse(accessToken, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return user, nil
}

// Profile returns the user's account
func (s *AuthService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial update. Absent fields are left unchanged.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in domain.ProfileUpdate) (*domain.User, error) {
	verr := domain.NewValidationError()
	if in.FirstName != nil {
		validateName(verr, "first_name", *in.FirstName)
	}
	if in.LastName != nil {
		validateName(verr, "last_name", *in.LastName)
	}
	if in.Address != nil {
		validateAddress(verr, in.Address)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if a := in.Address; a != nil {
		setIfPresent(&user.AddressLine1, a.AddressLine1)
		setIfPresent(&user.AddressLine2, a.AddressLine2)
		setIfPresent(&user.City, a.City)
		setIfPresent(&user.State, a.State)
		setIfPresent(&user.Pincode, a.Pincode)
		setIfPresent(&user.Country, a.Country)
		if user.Country == "" {
			user.Country = domain.DefaultCountry
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in domain.PasswordChange) error {
	verr := domain.NewValidationError()
	if in.OldPassword == "" {
		verr.Add("old_password", msgRequired)
	}
	if in.NewPassword == "" {
		verr.Add("new_password", msgRequired)
	} else {
		validatePassword(verr, "new_password", in.NewPassword)
	}
	if in.NewPasswordConfirm == "" {
		verr.Add("new_password_confirm", msgRequired)
	}
	if err := verr.OrNil(); err != nil {
		return err
	}
	if in.NewPassword != in.NewPasswordConfirm {
		verr.Add("new_password_confirm", msgNewPasswordMismatch)
		return verr
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)) != nil {
		verr.Add("old_password", msgOldPasswordWrong)
		return verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info().Uint("user_id", userID).Msg("password changed")
	return nil
}

func (s *AuthService) parseRefresh(ctx context.Context, refreshToken string) (*domain.TokenClaims, error) {
	claims, err := s.tokens.Parse(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if s.blacklist == nil {
		return claims, nil
	}

	revoked, err := s.blacklist.Exists(ctx, blacklistKey(claims.TokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token is blacklisted", domain.ErrInvalidToken)
	}
	return claims, nil
}

// revoke blacklists the token until it would have expired anyway
func (s *AuthService) revoke(ctx context.Context, claims *domain.TokenClaims) error {
	if s.blacklist == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.blacklist.Set(ctx, blacklistKey(claims.TokenID), []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func blacklistKey(tokenID string) string {
	return blacklistPrefix + tokenID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateEmail(verr *domain.ValidationError, raw, normalized string) {
	switch {
	case raw == "":
		verr.Add("email", msgRequired)
	case normalized == "":
		verr.Add("email", msgBlank)
	case s.validate.Var(normalized, "email,max=255") != nil:
		verr.Add("email", msgInvalidEmail)
	}
}

func validatePassword(verr *domain.ValidationError, field, password string) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		verr.Add(field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLen))
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		verr.Add(field, msgPasswordNumeric)
	}
}

func validateName(verr *domain.ValidationError, field, name string) {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > maxNameLen {
		verr.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLen))
	}
}

func validateAddress(verr *domain.ValidationError, a *domain.Address) {
	limits := []struct {
		field string
		value *string
		max   int
	}{
		{"address_line1", a.AddressLine1, 255},
		{"address_line2", a.AddressLine2, 255},
		{"city", a.City, 100},
		{"state", a.State, 100},
		{"pincode", a.Pincode, 10},
		{"country", a.Country, 100},
	}
	for _, l := range limits {
		if l.value != nil && utf8.RuneCountInString(strings.TrimSpace(*l.value)) > l.max {
			verr.Add("address."+l.field, fmt.Sprintf("Ensure this field has no more than %d characters.", l.max))
		}
	}
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
