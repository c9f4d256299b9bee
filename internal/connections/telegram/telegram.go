package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotConfigured    = errors.New("telegram relay is not configured")
	ErrUnexpectedStatus = errors.New("telegram answered with non-200 status")
)

type Config struct {
	APIURL   string // e.g. https://api.telegram.org
	BotToken string
	ChatID   string
	Timeout  time.Duration // 0 keeps the http client default
}

// Client posts staff messages through the Bot API sendMessage method.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send makes exactly one attempt. Anything but HTTP 200 is a failure.
func (c *Client) Send(ctx context.Context, text string) error {
	if c.cfg.BotToken == "" || c.cfg.ChatID == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: c.cfg.ChatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/bot" + c.cfg.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// the url embeds the token; never surface it
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("post sendMessage: %w", uerr.Err)
		}
		return fmt.Errorf("post sendMessage: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
