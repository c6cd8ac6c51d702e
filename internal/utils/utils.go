// Package utils holds small helpers shared by the source connectors and model clients.
package utils

import (
	"context"
	"strings"
	"time"
)

// WaitFor sleeps for d. It returns early with the context error when ctx is done first.
func WaitFor(ctx context.Context, d time.Duration) error {
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

// TruncateForLog flattens s to one line and cuts it to limit runes with a trailing ellipsis.
// Model output and HTTP bodies are multi-line, log previews are not.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(s), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}
