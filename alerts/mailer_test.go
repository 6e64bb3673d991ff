package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/push-dispatcher/models"
)

type fakeEmailClient struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeEmailClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	return &rest.Response{StatusCode: 202}, nil
}

func failedRun() models.RunReport {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.RunReport{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		RunResult:  models.RunResult{Total: 2, Sent: 1, Failed: 1},
	}
}

func TestMailer_SendsReportForFailedNotifications(t *testing.T) {
	client := &fakeEmailClient{}
	m := NewMailerWithClient(client, "ops@example.com")

	err := m.Report(context.Background(), failedRun(), nil)

	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "Push dispatch run: 1 of 2 notifications failed", msg.Subject)
	assert.Equal(t, "ops@example.com", msg.Personalizations[0].To[0].Address)
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "text/plain", msg.Content[0].Type)
	assert.Equal(t, "text/html", msg.Content[1].Type)
}

func TestMailer_SendsReportForFatalRun(t *testing.T) {
	client := &fakeEmailClient{}
	m := NewMailerWithClient(client, "ops@example.com")
	report := models.RunReport{RunID: "run-2", Error: "failed to read fcm tokens: timeout"}

	err := m.Report(context.Background(), report, errors.New("failed to read fcm tokens: timeout"))

	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "Push dispatch run failed", client.sent[0].Subject)
}

func TestMailer_SkipsCleanRuns(t *testing.T) {
	client := &fakeEmailClient{}
	m := NewMailerWithClient(client, "ops@example.com")

	assert.NoError(t, m.Report(context.Background(), models.RunReport{RunResult: models.RunResult{Total: 3, Sent: 3}}, nil))
	assert.NoError(t, m.Report(context.Background(), models.RunReport{Skipped: true}, nil))
	assert.Empty(t, client.sent)
}

func TestMailer_ClientError(t *testing.T) {
	client := &fakeEmailClient{err: errors.New("mocked-error")}
	m := NewMailerWithClient(client, "ops@example.com")

	err := m.Report(context.Background(), failedRun(), nil)

	assert.EqualError(t, err, "mocked-error")
}

func TestMailer_ErrorStatus(t *testing.T) {
	client := &fakeEmailClient{response: &rest.Response{StatusCode: 401, Body: `{"errors":[]}`}}
	m := NewMailerWithClient(client, "ops@example.com")

	err := m.Report(context.Background(), failedRun(), nil)

	assert.EqualError(t, err, "sendgrid error: status 401")
}
