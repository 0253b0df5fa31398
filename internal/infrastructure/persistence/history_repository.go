package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/compario/backend/internal/domain"
)

// HistoryRepository implements domain.HistoryRepository with gorm
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Create(ctx context.Context, entry *domain.SearchHistoryEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ListRecent returns at most limit entries of the user, newest first
func (r *HistoryRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]domain.SearchHistoryEntry, error) {
	var entries []domain.SearchHistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("searched_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}

// LatestTimestamp returns the newest searched_at of the user, or the zero
// time when the user has no entries
func (r *HistoryRepository) LatestTimestamp(ctx context.Context, userID uint) (time.Time, error) {
	var latest domain.SearchHistoryEntry
	err := r.db.WithContext(ctx).
		Select("searched_at").
		Where("user_id = ?", userID).
		Order("searched_at DESC").
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest history timestamp: %w", err)
	}
	return latest.SearchedAt, nil
}

// DeleteOwned deletes one entry only if it belongs to userID
func (r *HistoryRepository) DeleteOwned(ctx context.Context, userID, entryID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&domain.SearchHistoryEntry{})
	if result.Error != nil {
		return fmt.Errorf("delete history entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrHistoryNotFound
	}
	return nil
}

// DeleteAllOwned deletes every entry of the user
func (r *HistoryRepository) DeleteAllOwned(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.SearchHistoryEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear history: %w", result.Error)
	}
	return result.RowsAffected, nil
}
