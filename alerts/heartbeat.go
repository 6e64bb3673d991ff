package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TelegramBaseURL is the Telegram Bot API host
const TelegramBaseURL = "https://api.telegram.org"

// TelegramError is returned when the Bot API rejects a message
type TelegramError struct {
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *TelegramError) Error() string {
	description := e.Description
	if description == "" {
		description = "unknown error"
	}
	return fmt.Sprintf("telegram error: %d - %s (error_code: %d)", e.StatusCode, description, e.ErrorCode)
}

type telegramRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Heartbeat posts a liveness message to a Telegram chat
type Heartbeat struct {
	BaseURL    string
	botToken   string
	chatID     string
	httpClient *http.Client
	now        func() time.Time
}

// NewHeartbeat creates a heartbeat for the given bot and chat
func NewHeartbeat(botToken, chatID string, timeout time.Duration) *Heartbeat {
	return &Heartbeat{
		BaseURL:    TelegramBaseURL,
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Ping sends the heartbeat and returns the id of the posted message
func (h *Heartbeat) Ping(ctx context.Context) (int64, error) {
	return h.Send(ctx, h.message())
}

// Send posts text to the configured chat
func (h *Heartbeat) Send(ctx context.Context, text string) (int64, error) {
	body, err := json.Marshal(telegramRequest{ChatID: h.chatID, Text: text})
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(h.BaseURL, "/"), h.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		// the url carries the bot token
		return 0, fmt.Errorf("telegram request failed: %w", redact(err, h.botToken))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("failed to read telegram response: %w", err)
	}

	var parsed telegramResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, &TelegramError{StatusCode: resp.StatusCode, Description: fmt.Sprintf("unparseable response: %s", string(raw))}
	}
	if resp.StatusCode >= 300 || !parsed.OK {
		return 0, &TelegramError{StatusCode: resp.StatusCode, ErrorCode: parsed.ErrorCode, Description: parsed.Description}
	}

	zap.S().Infow("heartbeat sent", "chatId", h.chatID, "messageId", parsed.Result.MessageID)
	return parsed.Result.MessageID, nil
}

func (h *Heartbeat) message() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown host"
	}
	return fmt.Sprintf("push-dispatcher alive on %s\n%s", host, h.now().UTC().Format(time.RFC3339))
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
