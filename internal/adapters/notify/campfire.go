package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Campfire posts plain-text messages to a Campfire chat room through its
// bot API. Implements ports.Notifier. An empty bot key disables sending.
type Campfire struct {
	http    *http.Client
	baseURL string
	roomID  string
	botKey  string
}

// NewCampfire creates a Campfire notifier.
func NewCampfire(baseURL, roomID, botKey string) *Campfire {
	return &Campfire{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		roomID:  roomID,
		botKey:  botKey,
	}
}

// Enabled reports whether a bot key is configured.
func (c *Campfire) Enabled() bool { return c.botKey != "" }

func (c *Campfire) endpoint() string {
	return fmt.Sprintf("%s/rooms/%s/%s/messages", c.baseURL, c.roomID, c.botKey)
}

// SendMessage posts text to the room. Best-effort: callers are expected
// to log and swallow the returned error.
func (c *Campfire) SendMessage(ctx context.Context, text string) error {
	if !c.Enabled() {
		slog.Debug("campfire notifier disabled")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("notify.Campfire: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify.Campfire: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("notify.Campfire: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
