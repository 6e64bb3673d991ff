package runner

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/push-dispatcher/databases/mocks"
	"github.com/linesmerrill/push-dispatcher/dispatch"
	"github.com/linesmerrill/push-dispatcher/fcm"
	"github.com/linesmerrill/push-dispatcher/models"
)

func serviceAccountJSON(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	raw, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "demo-project",
		"private_key_id": "key-1",
		"private_key":    string(keyPEM),
		"client_email":   "dispatcher@demo-project.iam.gserviceaccount.com",
	})
	require.NoError(t, err)
	return raw
}

func TestRun_DerivesCredentialsOncePerRun(t *testing.T) {
	var exchanges atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"access-%d","expires_in":3599,"token_type":"Bearer"}`, n)
	}))
	defer tokenServer.Close()

	var sends atomic.Int32
	pushServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		_, _ = w.Write([]byte(`{"name":"projects/demo-project/messages/1"}`))
	}))
	defer pushServer.Close()

	account := serviceAccountJSON(t)
	newDispatcher := func() Dispatcher {
		tokens := fcm.NewTokenSource(account, tokenServer.URL, &http.Client{Timeout: time.Second})
		return dispatch.New(fcm.NewClient(pushServer.URL, "demo-project", tokens, time.Second))
	}

	nDB := &mocks.NotificationDatabase{}
	tDB := &mocks.FCMTokenDatabase{}
	nDB.On("FindPending", mock.Anything).Return(pendingNotifications("n1", "n2"), nil)
	tDB.On("FindActive", mock.Anything).Return(activeTokens("a", "b"), nil)
	nDB.On("MarkSent", mock.Anything, mock.Anything, "").Return(true, nil)

	r := New(nDB, tDB, nil, newDispatcher)
	for i := 0; i < 2; i++ {
		report, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.RunResult{Total: 2, Sent: 2, Failed: 0}, report.RunResult)
	}

	assert.EqualValues(t, 2, exchanges.Load())
	assert.EqualValues(t, 8, sends.Load())
}
