// Package vision holds helpers shared by the vision provider adapters.
// Each adapter lives in its own subpackage and implements
// domain.ProductDetector.
package vision

import (
	"context"
	"time"
	"unicode/utf8"
)

// MaxLoggedBody bounds how much of a provider response body is logged
const MaxLoggedBody = 200

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Truncate shortens s to at most n bytes without splitting a rune
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
