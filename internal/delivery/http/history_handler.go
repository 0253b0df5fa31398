package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compario/backend/internal/domain"
)

// priceInput accepts a price as a JSON number or string
type priceInput string

func (p *priceInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = priceInput(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("best_price: %w", err)
		}
		*p = priceInput(n.String())
	}
	return nil
}

type createHistoryRequest struct {
	ProductName string     `json:"product_name"`
	BestPrice   priceInput `json:"best_price"`
	Store       string     `json:"store"`
}

type historyEntryResponse struct {
	ID          uint      `json:"id"`
	ProductName string    `json:"product_name"`
	BestPrice   string    `json:"best_price"`
	Store       string    `json:"store"`
	Timestamp   time.Time `json:"timestamp"`
}

func toHistoryResponse(e domain.SearchHistoryEntry) historyEntryResponse {
	return historyEntryResponse{
		ID:          e.ID,
		ProductName: e.ProductName,
		BestPrice:   e.BestPrice.StringFixed(2),
		Store:       e.Store,
		Timestamp:   e.SearchedAt.UTC(),
	}
}

// ListHistory returns the caller's most recent searches
func (h *Handler) ListHistory(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	entries, err := h.history.List(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err, "failed to list history")
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryResponse(e))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": out,
	})
}

// CreateHistory stores a search for the caller
func (h *Handler) CreateHistory(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fieldErrors(c, map[string][]string{"non_field_errors": {"Invalid request body."}})
		return
	}

	entry, err := h.history.Create(c.Request.Context(), user.ID, domain.NewHistoryEntry{
		ProductName: req.ProductName,
		BestPrice:   string(req.BestPrice),
		Store:       req.Store,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			fieldErrors(c, verr.Fields)
			return
		}
		h.internalError(c, err, "failed to create history entry")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "History entry created",
		"entry":   toHistoryResponse(*entry),
	})
}

// DeleteHistory removes one of the caller's entries
func (h *Handler) DeleteHistory(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		failure(c, http.StatusNotFound, "History entry not found or you do not have permission")
		return
	}

	if err := h.history.Delete(c.Request.Context(), user.ID, uint(id)); err != nil {
		if errors.Is(err, domain.ErrHistoryNotFound) {
			failure(c, http.StatusNotFound, "History entry not found or you do not have permission")
			return
		}
		h.internalError(c, err, "failed to delete history entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "History entry deleted",
	})
}

// ClearHistory removes all of the caller's entries
func (h *Handler) ClearHistory(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	deleted, err := h.history.Clear(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err, "failed to clear history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Cleared %d history entries", deleted),
		"deleted": deleted,
	})
}
