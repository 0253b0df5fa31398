package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/compario/backend/internal/domain"
)

// History field limits, matching the column sizes
const (
	maxProductNameLen = 255
	maxStoreLen       = 100
	maxPriceDigits    = 10
	maxPriceDecimals  = 2
)

// Field validation messages
const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

// HistoryService manages per-user search history
type HistoryService struct {
	repo   domain.HistoryRepository
	now    func() time.Time
	logger zerolog.Logger

	// createMu serializes creates so timestamps stay ordered per user
	createMu sync.Mutex
}

// NewHistoryService creates a new history service
func NewHistoryService(repo domain.HistoryRepository, logger zerolog.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// List returns the user's most recent entries, newest first
func (s *HistoryService) List(ctx context.Context, userID uint) ([]domain.SearchHistoryEntry, error) {
	entries, err := s.repo.ListRecent(ctx, userID, domain.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if entries == nil {
		entries = []domain.SearchHistoryEntry{}
	}
	return entries, nil
}

// Create validates and stores a new entry owned by userID. The timestamp is
// assigned here and never goes backwards for the same user.
func (s *HistoryService) Create(ctx context.Context, userID uint, in domain.NewHistoryEntry) (*domain.SearchHistoryEntry, error) {
	entry, err := ValidateHistoryEntry(in)
	if err != nil {
		return nil, err
	}
	entry.UserID = userID

	s.createMu.Lock()
	defer s.createMu.Unlock()

	ts := s.now().UTC().Truncate(time.Microsecond)
	latest, err := s.repo.LatestTimestamp(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest history timestamp: %w", err)
	}
	if ts.Before(latest) {
		ts = latest.UTC()
	}
	entry.SearchedAt = ts

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save history entry: %w", err)
	}

	s.logger.Info().
		Uint("user_id", userID).
		Uint("entry_id", entry.ID).
		Str("product_name", entry.ProductName).
		Msg("history entry created")

	return entry, nil
}

// Delete removes one entry if it belongs to userID. Entries owned by other
// users are reported as not found.
func (s *HistoryService) Delete(ctx context.Context, userID, entryID uint) error {
	if err := s.repo.DeleteOwned(ctx, userID, entryID); err != nil {
		if errors.Is(err, domain.ErrHistoryNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

// Clear removes all of the user's entries and returns how many were deleted
func (s *HistoryService) Clear(ctx context.Context, userID uint) (int64, error) {
	deleted, err := s.repo.DeleteAllOwned(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	s.logger.Info().Uint("user_id", userID).Int64("deleted", deleted).Msg("history cleared")
	return deleted, nil
}

// ValidateHistoryEntry checks the client fields and converts them to an
// unsaved entry. All field errors are reported together.
func ValidateHistoryEntry(in domain.NewHistoryEntry) (*domain.SearchHistoryEntry, error) {
	verr := domain.NewValidationError()

	name := strings.TrimSpace(in.ProductName)
	validateText(verr, "product_name", in.ProductName, name, maxProductNameLen)

	store := strings.TrimSpace(in.Store)
	validateText(verr, "store", in.Store, store, maxStoreLen)

	price, priceErr := parsePrice(in.BestPrice)
	if priceErr != "" {
		verr.Add("best_price", priceErr)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return &domain.SearchHistoryEntry{
		ProductName: name,
		BestPrice:   price,
		Store:       store,
	}, nil
}

func validateText(verr *domain.ValidationError, field, raw, trimmed string, maxLen int) {
	switch {
	case raw == "":
		verr.Add(field, msgRequired)
	case trimmed == "":
		verr.Add(field, msgBlank)
	case utf8.RuneCountInString(trimmed) > maxLen:
		verr.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
	}
}

// parsePrice parses a decimal price with at most 10 digits, 2 of them after
// the point. It returns a field message on failure.
func parsePrice(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, msgRequired
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, "A valid number is required."
	}

	digits, decimals := decimalDigits(d)
	wholeDigits := digits - decimals
	switch {
	case digits > maxPriceDigits:
		return decimal.Decimal{}, fmt.Sprintf("Ensure that there are no more than %d digits in total.", maxPriceDigits)
	case decimals > maxPriceDecimals:
		return decimal.Decimal{}, fmt.Sprintf("Ensure that there are no more than %d decimal places.", maxPriceDecimals)
	case wholeDigits > maxPriceDigits-maxPriceDecimals:
		return decimal.Decimal{}, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxPriceDigits-maxPriceDecimals)
	}

	return d, ""
}

// decimalDigits returns the total significant digits and the digits after
// the decimal point as written.
func decimalDigits(d decimal.Decimal) (digits, decimals int) {
	coefficient := d.Coefficient()
	coefficient.Abs(coefficient)
	coeffDigits := len(coefficient.String())
	exp := int(d.Exponent())

	if exp >= 0 {
		if coefficient.Sign() == 0 {
			coeffDigits = 0
		}
		return coeffDigits + exp, 0
	}

	decimals = -exp
	if decimals > coeffDigits {
		return decimals, decimals
	}
	return coeffDigits, decimals
}
