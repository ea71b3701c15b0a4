package alert

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Telegram posts HTML messages to the Telegram bot API.
type Telegram struct {
	apiBase    string
	token      string
	chatID     string
	httpClient *http.Client
}

// NewTelegram builds a Telegram transport.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		apiBase: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts one message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// LogTransport sinks alerts into the process log when no delivery channel is
// configured.
type LogTransport struct{}

// Send writes the message to the log and always succeeds.
func (LogTransport) Send(ctx context.Context, text string) error {
	log.Printf("alert (unconfigured, sinking): %s", strings.ReplaceAll(text, "\n", " | "))
	return nil
}
