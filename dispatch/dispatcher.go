package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linesmerrill/push-dispatcher/fcm"
	"github.com/linesmerrill/push-dispatcher/models"
)

const (
	// ReasonProjectNotConfigured is recorded when no FCM project is configured
	ReasonProjectNotConfigured = "FCM_PROJECT_ID not configured"
	// ReasonNoTokens is recorded when there is no active device to send to
	ReasonNoTokens = "No FCM tokens registered"

	allFailedPrefix = "FCM: all sends failed - "
	unknown         = "unknown"
	defaultLimit    = 8
)

// Sender delivers one message to one device token
type Sender interface {
	Send(ctx context.Context, deviceToken string, msg fcm.Message) (string, error)
}

// Failure is a delivery that did not succeed for one destination
type Failure struct {
	TokenID string
	Err     error
}

func (f Failure) String() string {
	id := f.TokenID
	if id == "" {
		id = unknown
	}
	msg := unknown
	if f.Err != nil && f.Err.Error() != "" {
		msg = f.Err.Error()
	}
	return id + ": " + msg
}

// Outcome is the result of fanning one notification out to every destination
type Outcome struct {
	NotificationID string
	Attempted      int
	Delivered      int
	Failures       []Failure
	// Reason is set when no delivery was attempted at all
	Reason string
}

// Sent reports whether the notification reached at least one destination
func (o Outcome) Sent() bool {
	return o.Delivered > 0
}

// Diagnostic is the text stored on a notification that was not sent
func (o Outcome) Diagnostic() string {
	if o.Sent() {
		return ""
	}
	if o.Reason != "" {
		return o.Reason
	}
	parts := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		parts = append(parts, f.String())
	}
	return allFailedPrefix + strings.Join(parts, "; ")
}

// Dispatcher fans notifications out to FCM tokens
type Dispatcher struct {
	sender Sender
	limit  int
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithConcurrency bounds the number of sends in flight for one notification
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// New creates a dispatcher. A nil sender means no FCM project is configured
// and every notification fails without touching the network.
func New(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{sender: sender, limit: defaultLimit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends the notification to every token. Each destination is
// independent: a failure never stops the others, and the outcome is decided
// only after every send has finished.
func (d *Dispatcher) Dispatch(ctx context.Context, notification models.Notification, tokens []models.FCMToken) Outcome {
	outcome := Outcome{NotificationID: notification.ID}
	if d.sender == nil {
		outcome.Reason = ReasonProjectNotConfigured
		return outcome
	}
	if len(tokens) == 0 {
		outcome.Reason = ReasonNoTokens
		return outcome
	}

	msg := fcm.Message{Title: notification.Title, Body: notification.Message}
	errs := make([]error, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)
	for i, token := range tokens {
		g.Go(func() error {
			// the group context is only cancelled by ctx, sends never return errors
			_, errs[i] = d.sender.Send(gctx, token.Token, msg)
			return nil
		})
	}
	_ = g.Wait()

	outcome.Attempted = len(tokens)
	for i, token := range tokens {
		if errs[i] != nil {
			outcome.Failures = append(outcome.Failures, Failure{TokenID: token.ID, Err: errs[i]})
			zap.S().Warnw("failed to send to device",
				"notificationId", notification.ID,
				"tokenId", orUnknown(token.ID),
				"error", errs[i],
			)
			continue
		}
		outcome.Delivered++
		zap.S().Debugw("sent to device", "notificationId", notification.ID, "tokenId", orUnknown(token.ID))
	}

	if outcome.Sent() && len(outcome.Failures) > 0 {
		zap.S().Infow(fmt.Sprintf("%d send(s) failed", len(outcome.Failures)),
			"notificationId", notification.ID,
			"delivered", outcome.Delivered,
		)
	}
	return outcome
}

func orUnknown(id string) string {
	if id == "" {
		return unknown
	}
	return id
}
