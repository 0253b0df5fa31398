package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryLimit is the maximum number of entries returned when listing history
const HistoryLimit = 50

// SearchHistoryEntry is one product search saved by a user
type SearchHistoryEntry struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	UserID      uint            `gorm:"not null;index:idx_history_user_searched,priority:1"`
	ProductName string          `gorm:"size:255;not null"`
	BestPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Store       string          `gorm:"size:100;not null"`
	SearchedAt  time.Time       `gorm:"not null;index:idx_history_user_searched,priority:2,sort:desc"`
}

// TableName sets the table name for GORM
func (SearchHistoryEntry) TableName() string {
	return "search_history"
}

// NewHistoryEntry holds the client-supplied fields of a history entry
type NewHistoryEntry struct {
	ProductName string
	BestPrice   string
	Store       string
}
