package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compario/backend/internal/domain"
)

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type updateProfileRequest struct {
	FirstName *string         `json:"first_name"`
	LastName  *string         `json:"last_name"`
	Address   *domain.Address `json:"address"`
}

type changePasswordRequest struct {
	OldPassword        string `json:"old_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type addressResponse struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
}

type profileResponse struct {
	ID         uint             `json:"id"`
	Email      string           `json:"email"`
	FirstName  string           `json:"first_name"`
	LastName   string           `json:"last_name"`
	FullName   string           `json:"full_name"`
	DateJoined time.Time        `json:"date_joined"`
	LastLogin  *time.Time       `json:"last_login"`
	Address    *addressResponse `json:"address"`
}

func toProfile(u *domain.User) profileResponse {
	p := profileResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		FullName:   u.FullName(),
		DateJoined: u.DateJoined.UTC(),
		LastLogin:  u.LastLogin,
	}
	if u.HasAddress() {
		p.Address = &addressResponse{
			AddressLine1: u.AddressLine1,
			AddressLine2: u.AddressLine2,
			City:         u.City,
			State:        u.State,
			Pincode:      u.Pincode,
			Country:      u.Country,
		}
	}
	return p
}

func invalidBody(c *gin.Context) {
	fieldErrors(c, map[string][]string{"non_field_errors": {"Invalid request body."}})
}

// Signup registers a new account
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	user, tokens, err := h.auth.Signup(c.Request.Context(), domain.SignupRequest{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		h.authError(c, err, "signup failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    toProfile(user),
		"tokens":  tokens,
	})
}

// Login authenticates with email and password
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	user, tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(c, err, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    toProfile(user),
		"tokens":  tokens,
	})
}

// Logout blacklists the given refresh token
func (h *Handler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		failure(c, http.StatusBadRequest, "Refresh token is required")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			failure(c, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		h.internalError(c, err, "logout failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// RefreshToken rotates a refresh token into a new pair
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrAccountInactive) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"detail": "Token is invalid or expired",
				"code":   "token_not_valid",
			})
			return
		}
		h.internalError(c, err, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// GetProfile returns the caller's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    toProfile(profile),
	})
}

// UpdateProfile applies a partial update to the caller's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	updated, err := h.auth.UpdateProfile(c.Request.Context(), user.ID, domain.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
	})
	if err != nil {
		h.authError(c, err, "profile update failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"user":    toProfile(updated),
	})
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), user.ID, domain.PasswordChange{
		OldPassword:        req.OldPassword,
		NewPassword:        req.NewPassword,
		NewPasswordConfirm: req.NewPasswordConfirm,
	})
	if err != nil {
		h.authError(c, err, "password change failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password changed successfully",
	})
}

// authError maps auth failures onto field error responses
func (h *Handler) authError(c *gin.Context, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		fieldErrors(c, verr.Fields)
	case errors.Is(err, domain.ErrInvalidCredentials):
		fieldErrors(c, map[string][]string{"non_field_errors": {"Invalid email or password."}})
	case errors.Is(err, domain.ErrAccountInactive):
		fieldErrors(c, map[string][]string{"non_field_errors": {"This account has been deactivated."}})
	default:
		h.internalError(c, err, msg)
	}
}
