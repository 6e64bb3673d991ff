package fcm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceAccount(t *testing.T) {
	raw, key := newServiceAccount(t)

	account, err := ParseServiceAccount(raw)

	require.NoError(t, err)
	assert.Equal(t, "dispatcher@demo-project.iam.gserviceaccount.com", account.ClientEmail)
	assert.Equal(t, "demo-project", account.ProjectID)
	assert.Equal(t, "key-1", account.PrivateKeyID)
	assert.True(t, key.Equal(account.PrivateKey))
}

func TestParseServiceAccountFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"empty", "", "FCM_SERVICE_ACCOUNT_JSON is not configured"},
		{"not json", "{nope", "malformed JSON"},
		{"no email", `{"private_key":"x"}`, "client_email is missing"},
		{"no key", `{"client_email":"a@b.c"}`, "private_key is missing"},
		{"bad key", `{"client_email":"a@b.c","private_key":"not a pem"}`, "private_key is not an RSA key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := ParseServiceAccount([]byte(tt.raw))

			var credErr *CredentialError
			assert.Nil(t, account)
			require.True(t, errors.As(err, &credErr))
			assert.Equal(t, tt.reason, credErr.Reason)
		})
	}
}
