package ports

import "context"

// Notifier delivers human-facing trade alerts. Best-effort: callers log
// and swallow failures, they never reach trading logic.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}
