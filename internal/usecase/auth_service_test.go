package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/compario/backend/internal/domain"
	"github.com/compario/backend/internal/infrastructure/token"
)

type authFixture struct {
	svc    *AuthService
	users  *MockUserRepository
	cache  *MockCacheRepository
	tokens *token.Manager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := token.NewManager(token.Config{Secret: "test-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	users := NewMockUserRepository()
	cache := NewMockCacheRepository()
	svc := NewAuthService(users, tokens, cache, AuthServiceConfig{BcryptCost: bcrypt.MinCost}, zerolog.Nop())
	return &authFixture{svc: svc, users: users, cache: cache, tokens: tokens}
}

func validSignup() domain.SignupRequest {
	return domain.SignupRequest{
		Email:           "Asha@Example.com",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
		FirstName:       "Asha",
		LastName:        "Rao",
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Fields
}

func TestAuthService_Signup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.Equal(t, domain.DefaultCountry, user.Country)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	claims, err := f.tokens.Parse(pair.Access, domain.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthService_SignupValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SignupRequest)
		want   map[string]string
	}{
		{
			name:   "missing email",
			mutate: func(r *domain.SignupRequest) { r.Email = "" },
			want:   map[string]string{"email": msgRequired},
		},
		{
			name:   "malformed email",
			mutate: func(r *domain.SignupRequest) { r.Email = "not-an-email" },
			want:   map[string]string{"email": msgInvalidEmail},
		},
		{
			name:   "password mismatch",
			mutate: func(r *domain.SignupRequest) { r.PasswordConfirm = "something-else" },
			want:   map[string]string{"password_confirm": msgPasswordMismatch},
		},
		{
			name: "short password",
			mutate: func(r *domain.SignupRequest) {
				r.Password, r.PasswordConfirm = "abc", "abc"
			},
			want: map[string]string{"password": "This password is too short. It must contain at least 8 characters."},
		},
		{
			name: "numeric password",
			mutate: func(r *domain.SignupRequest) {
				r.Password, r.PasswordConfirm = "1234567890", "1234567890"
			},
			want: map[string]string{"password": msgPasswordNumeric},
		},
		{
			name:   "first name too long",
			mutate: func(r *domain.SignupRequest) { r.FirstName = strings.Repeat("a", 151) },
			want:   map[string]string{"first_name": "Ensure this field has no more than 150 characters."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			req := validSignup()
			tt.mutate(&req)

			_, _, err := f.svc.Signup(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)

			fields := fieldErrors(t, err)
			assert.Len(t, fields, len(tt.want))
			for field, msg := range tt.want {
				assert.Contains(t, fields[field], msg, field)
			}
		})
	}
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	again := validSignup()
	again.Email = "ASHA@example.COM"
	_, _, err = f.svc.Signup(ctx, again)
	require.Error(t, err)
	assert.Equal(t, []string{msgEmailTaken}, fieldErrors(t, err)["email"])
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, _, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.Nil(t, registered.LastLogin)

	t.Run("success updates last login", func(t *testing.T) {
		user, pair, err := f.svc.Login(ctx, " ASHA@example.com ", "s3cret-pass")
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)
		assert.NotEmpty(t, pair.Refresh)

		stored, err := f.users.GetByID(ctx, registered.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLogin)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "asha@example.com", "wrong-pass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "nobody@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "", "")
		fields := fieldErrors(t, err)
		assert.Equal(t, []string{msgRequired}, fields["email"])
		assert.Equal(t, []string{msgRequired}, fields["password"])
	})

	t.Run("inactive account", func(t *testing.T) {
		stored, err := f.users.GetByID(ctx, registered.ID)
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, f.users.Update(ctx, stored))

		_, _, err = f.svc.Login(ctx, "asha@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, domain.ErrAccountInactive)
	})
}

func TestAuthService_LogoutBlacklistsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, pair, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, pair.Refresh))

	keys := f.cache.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "blacklist:"))

	assert.ErrorIs(t, f.svc.Logout(ctx, pair.Refresh), domain.ErrInvalidToken)
	_, err = f.svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	assert.ErrorIs(t, f.svc.Logout(ctx, pair.Access), domain.ErrInvalidToken, "access token is not a refresh token")
	assert.ErrorIs(t, f.svc.Logout(ctx, "garbage"), domain.ErrInvalidToken)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, pair, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, rotated.Refresh)

	_, err = f.svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "old refresh token is single use")

	_, err = f.svc.Refresh(ctx, rotated.Refresh)
	assert.NoError(t, err)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, pair, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = f.svc.Authenticate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	orphan, err := f.tokens.IssuePair(999)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, orphan.Access)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, _, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	first := "Ashwini"
	city := "Pune"
	line := "12 MG Road"
	empty := ""
	updated, err := f.svc.UpdateProfile(ctx, registered.ID, domain.ProfileUpdate{
		FirstName: &first,
		Address:   &domain.Address{AddressLine1: &line, City: &city, Country: &empty},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ashwini", updated.FirstName)
	assert.Equal(t, "Rao", updated.LastName, "absent fields stay unchanged")
	assert.Equal(t, "Pune", updated.City)
	assert.Equal(t, domain.DefaultCountry, updated.Country)
	assert.True(t, updated.HasAddress())

	long := strings.Repeat("9", 11)
	_, err = f.svc.UpdateProfile(ctx, registered.ID, domain.ProfileUpdate{Address: &domain.Address{Pincode: &long}})
	assert.Contains(t, fieldErrors(t, err), "address.pincode")

	_, err = f.svc.UpdateProfile(ctx, 404, domain.ProfileUpdate{FirstName: &first})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, _, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, registered.ID, domain.PasswordChange{
		OldPassword: "wrong-pass", NewPassword: "n3w-password", NewPasswordConfirm: "n3w-password",
	})
	assert.Equal(t, []string{msgOldPasswordWrong}, fieldErrors(t, err)["old_password"])

	err = f.svc.ChangePassword(ctx, registered.ID, domain.PasswordChange{
		OldPassword: "s3cret-pass", NewPassword: "n3w-password", NewPasswordConfirm: "n3w-passw0rd",
	})
	assert.Equal(t, []string{msgNewPasswordMismatch}, fieldErrors(t, err)["new_password_confirm"])

	err = f.svc.ChangePassword(ctx, registered.ID, domain.PasswordChange{
		OldPassword: "s3cret-pass", NewPassword: "n3w-password", NewPasswordConfirm: "n3w-password",
	})
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "asha@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "asha@example.com", "n3w-password")
	assert.NoError(t, err)
}
