package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/compario/backend/internal/domain"
	"github.com/compario/backend/internal/infrastructure/logging"
)

// Version is reported by the health check
const Version = "1.0.0"

const (
	defaultMaxUploadBytes = 5 * 1024 * 1024

	msgUnexpected = "An unexpected error occurred. Please try again."
)

// ProductDetectionService identifies the product in an image
type ProductDetectionService interface {
	Detect(ctx context.Context, image []byte) (*domain.ProductIdentification, error)
}

// HistoryService manages the caller's search history
type HistoryService interface {
	List(ctx context.Context, userID uint) ([]domain.SearchHistoryEntry, error)
	Create(ctx context.Context, userID uint, in domain.NewHistoryEntry) (*domain.SearchHistoryEntry, error)
	Delete(ctx context.Context, userID, entryID uint) error
	Clear(ctx context.Context, userID uint) (int64, error)
}

// AuthService manages accounts and tokens
type AuthService interface {
	Authenticator
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Profile(ctx context.Context, userID uint) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uint, in domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID uint, in domain.PasswordChange) error
}

// HandlerConfig holds request limits for the handlers
type HandlerConfig struct {
	MaxUploadBytes int64
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	vision         ProductDetectionService
	history        HistoryService
	auth           AuthService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	vision ProductDetectionService,
	history HistoryService,
	auth AuthService,
	cfg HandlerConfig,
	logger zerolog.Logger,
) *Handler {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	return &Handler{
		vision:         vision,
		history:        history,
		auth:           auth,
		maxUploadBytes: maxUpload,
		logger:         logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": logging.ServiceName,
		"version": Version,
	})
}

// fieldErrors writes a 400 with per-field messages
func fieldErrors(c *gin.Context, fields map[string][]string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"errors":  fields,
	})
}

// failure writes an error response with a single message
func failure(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

// internalError logs err and writes a generic 500
func (h *Handler) internalError(c *gin.Context, err error, msg string) {
	h.logger.Error().
		Err(err).
		Str("request_id", c.GetString(requestIDHeader)).
		Str("path", c.Request.URL.Path).
		Msg(msg)
	failure(c, http.StatusInternalServerError, msgUnexpected)
}

// requireUser returns the authenticated user or writes a 401
func requireUser(c *gin.Context) (*domain.User, bool) {
	user := currentUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"detail": "Authentication credentials were not provided.",
		})
		return nil, false
	}
	return user, true
}
