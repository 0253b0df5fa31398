package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrImageMissing is returned when an upload request carries no image
	ErrImageMissing = errors.New("no image provided")

	// ErrImageTooLarge is returned when the uploaded image exceeds the size limit
	ErrImageTooLarge = errors.New("image too large (max 5MB)")

	// ErrUnsupportedImageType is returned for content types other than JPEG/PNG
	ErrUnsupportedImageType = errors.New("invalid format (JPG/PNG only)")

	// ErrProviderUnavailable is returned when no vision provider could be initialized
	ErrProviderUnavailable = errors.New("no vision service configured")

	// ErrProviderCallFailed is returned when a reachable provider failed to detect a product
	ErrProviderCallFailed = errors.New("vision provider request failed")

	// ErrHistoryNotFound is returned when a history entry does not exist for the requesting user
	ErrHistoryNotFound = errors.New("history entry not found or you do not have permission")

	// ErrEmailTaken is returned when signing up with an email that is already registered
	ErrEmailTaken = errors.New("a user with this email already exists")

	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountInactive is returned when a deactivated user tries to authenticate
	ErrAccountInactive = errors.New("this account has been deactivated")

	// ErrInvalidToken is returned for malformed, expired or blacklisted tokens
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// ProviderError describes a failed call to an external vision provider.
// Message is safe to show to the client; Err carries the underlying cause.
type ProviderError struct {
	Provider   string
	Message    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports every ProviderError as ErrProviderCallFailed.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderCallFailed
}

// NewProviderError creates a ProviderError for the named provider
func NewProviderError(provider, message string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ValidationError collects per-field validation messages
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty ValidationError
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for a field
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field failed validation
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns the error only when it holds at least one field message
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is lets callers match any ValidationError against ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
