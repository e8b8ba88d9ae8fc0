package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID with a 10 second HTTP timeout.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the sender at another Bot API host.
func (t *TelegramSender) WithBaseURL(u string) *TelegramSender {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts n with sendMessage using HTML formatting. Pair ids and titles
// are escaped so characters like "_" or "<" render literally.
func (t *TelegramSender) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  telegramText(n),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var tr telegramResponse
		if json.Unmarshal(raw, &tr) == nil && tr.Description != "" {
			return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, tr.Description)
		}
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

func telegramText(n domain.Notification) string {
	esc := n
	esc.Title = html.EscapeString(n.Title)
	esc.Message = html.EscapeString(n.Message)
	if n.Data != nil {
		d := *n.Data
		d.Pair = html.EscapeString(d.Pair)
		d.Profit = html.EscapeString(d.Profit)
		esc.Data = &d
	}
	return renderText(esc, func(s string) string { return "<b>" + s + "</b>" })
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
