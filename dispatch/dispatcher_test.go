package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/push-dispatcher/fcm"
	"github.com/linesmerrill/push-dispatcher/models"
)

// fakeSender fails for the device tokens listed in failures
type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []string
	messages []fcm.Message

	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSender) Send(ctx context.Context, deviceToken string, msg fcm.Message) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, deviceToken)
	f.messages = append(f.messages, msg)
	if err, ok := f.failures[deviceToken]; ok {
		return "", err
	}
	return "projects/p/messages/" + deviceToken, nil
}

func tokens(ids ...string) []models.FCMToken {
	out := make([]models.FCMToken, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.FCMToken{ID: id, Token: "device-" + id})
	}
	return out
}

var notification = models.Notification{ID: "n1", Title: "Hello", Message: "World"}

func TestDispatch_AllSucceed(t *testing.T) {
	sender := &fakeSender{}

	outcome := New(sender).Dispatch(context.Background(), notification, tokens("a", "b", "c"))

	assert.True(t, outcome.Sent())
	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 3, outcome.Delivered)
	assert.Empty(t, outcome.Failures)
	assert.Empty(t, outcome.Diagnostic())
	assert.ElementsMatch(t, []string{"device-a", "device-b", "device-c"}, sender.sent)
	assert.Equal(t, fcm.Message{Title: "Hello", Body: "World"}, sender.messages[0])
}

func TestDispatch_PartialFailureStillSent(t *testing.T) {
	sender := &fakeSender{failures: map[string]error{
		"device-a": errors.New("FCM error: 404 UNREGISTERED - gone"),
		"device-c": errors.New("FCM error: 500 - boom"),
	}}

	outcome := New(sender).Dispatch(context.Background(), notification, tokens("a", "b", "c"))

	assert.True(t, outcome.Sent())
	assert.Equal(t, 1, outcome.Delivered)
	assert.Len(t, outcome.Failures, 2)
	assert.Empty(t, outcome.Diagnostic())
	// every destination was attempted even though the first one failed
	assert.Len(t, sender.sent, 3)
}

func TestDispatch_AllFail(t *testing.T) {
	sender := &fakeSender{failures: map[string]error{
		"device-a": errors.New("FCM error: 404 UNREGISTERED - gone"),
		"device-b": errors.New("FCM error: 500 - boom"),
	}}

	outcome := New(sender).Dispatch(context.Background(), notification, tokens("a", "b"))

	assert.False(t, outcome.Sent())
	assert.Equal(t, 2, outcome.Attempted)
	assert.Equal(t, []Failure{
		{TokenID: "a", Err: sender.failures["device-a"]},
		{TokenID: "b", Err: sender.failures["device-b"]},
	}, outcome.Failures)
	assert.Equal(t, "FCM: all sends failed - a: FCM error: 404 UNREGISTERED - gone; b: FCM error: 500 - boom", outcome.Diagnostic())
}

func TestDispatch_UnknownTokenID(t *testing.T) {
	sender := &fakeSender{failures: map[string]error{"device-x": errors.New("")}}

	outcome := New(sender).Dispatch(context.Background(), notification, []models.FCMToken{{Token: "device-x"}})

	assert.Equal(t, "FCM: all sends failed - unknown: unknown", outcome.Diagnostic())
}

func TestDispatch_NoProjectConfigured(t *testing.T) {
	outcome := New(nil).Dispatch(context.Background(), notification, tokens("a", "b"))

	assert.False(t, outcome.Sent())
	assert.Zero(t, outcome.Attempted)
	assert.Equal(t, "FCM_PROJECT_ID not configured", outcome.Diagnostic())
}

func TestDispatch_NoTokens(t *testing.T) {
	sender := &fakeSender{}

	outcome := New(sender).Dispatch(context.Background(), notification, nil)

	assert.False(t, outcome.Sent())
	assert.Equal(t, "No FCM tokens registered", outcome.Diagnostic())
	assert.Empty(t, sender.sent)
}

func TestDispatch_BoundsConcurrency(t *testing.T) {
	sender := &fakeSender{delay: 20 * time.Millisecond}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	outcome := New(sender, WithConcurrency(3)).Dispatch(context.Background(), notification, tokens(ids...))

	assert.Equal(t, 10, outcome.Delivered)
	assert.LessOrEqual(t, sender.maxSeen.Load(), int32(3))
	assert.Greater(t, sender.maxSeen.Load(), int32(1))
}

func TestWithConcurrencyIgnoresNonPositive(t *testing.T) {
	d := New(&fakeSender{}, WithConcurrency(0))

	assert.Equal(t, defaultLimit, d.limit)
}
