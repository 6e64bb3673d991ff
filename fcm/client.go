package fcm

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

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// TokenProvider hands out bearer tokens for the send endpoint
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate(token string)
}

// Message is the content pushed to a device
type Message struct {
	Title string
	Body  string
}

type sendRequest struct {
	Message wireMessage `json:"message"`
}

type wireMessage struct {
	Token        string            `json:"token"`
	Notification wireNotification  `json:"notification"`
	Data         map[string]string `json:"data"`
}

type wireNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendResponse struct {
	Name string `json:"name"`
}

// googleError is the error envelope returned by Google APIs
type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// Client sends FCM HTTP v1 messages for one project
type Client struct {
	endpoint   string
	tokens     TokenProvider
	httpClient *http.Client
}

// NewClient creates a client for projectID. baseURL is the FCM host, e.g.
// https://fcm.googleapis.com
func NewClient(baseURL, projectID string, tokens TokenProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(baseURL, "/"), url.PathEscape(projectID)),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers msg to a single device token and returns the FCM message name.
// If FCM rejects the bearer token it is invalidated and the send is attempted
// once more with a freshly derived one.
func (c *Client) Send(ctx context.Context, deviceToken string, msg Message) (string, error) {
	bearer, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	name, err := c.send(ctx, bearer, deviceToken, msg)
	var sendErr *SendError
	if errors.As(err, &sendErr) && sendErr.Unauthenticated() {
		zap.S().Warnw("fcm rejected access token, refreshing", "status", sendErr.StatusCode)
		c.tokens.Invalidate(bearer)

		bearer, err = c.tokens.Token(ctx)
		if err != nil {
			return "", err
		}
		return c.send(ctx, bearer, deviceToken, msg)
	}
	return name, err
}

func (c *Client) send(ctx context.Context, bearer, deviceToken string, msg Message) (string, error) {
	payload, err := json.Marshal(sendRequest{
		Message: wireMessage{
			Token: deviceToken,
			Notification: wireNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: map[string]string{
				"title":   msg.Title,
				"message": msg.Body,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal fcm message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SendError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &SendError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseSendError(resp.StatusCode, body)
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", &SendError{StatusCode: resp.StatusCode, Err: err}
	}
	return sr.Name, nil
}

func parseSendError(statusCode int, body []byte) *SendError {
	sendErr := &SendError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}

	var ge googleError
	if err := json.Unmarshal(body, &ge); err != nil || (ge.Error.Code == 0 && ge.Error.Status == "") {
		return sendErr
	}
	sendErr.Status = ge.Error.Status
	if ge.Error.Message != "" {
		sendErr.Message = ge.Error.Message
	}
	for _, detail := range ge.Error.Details {
		if detail.ErrorCode != "" {
			sendErr.ErrorCode = detail.ErrorCode
			break
		}
	}
	return sendErr
}
