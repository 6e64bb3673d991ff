package fcm

import (
	"crypto/rsa"
	"encoding/json"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccount is the subset of a Google service account key used to
// authenticate against FCM
type ServiceAccount struct {
	ClientEmail   string
	PrivateKeyID  string
	ProjectID     string
	PrivateKey    *rsa.PrivateKey
	PrivateKeyPEM []byte
}

type serviceAccountFile struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
}

// ParseServiceAccount decodes a service account JSON key
func ParseServiceAccount(raw []byte) (*ServiceAccount, error) {
	if len(raw) == 0 {
		return nil, &CredentialError{Reason: "FCM_SERVICE_ACCOUNT_JSON is not configured"}
	}

	var file serviceAccountFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &CredentialError{Reason: "malformed JSON", Err: err}
	}
	if file.ClientEmail == "" {
		return nil, &CredentialError{Reason: "client_email is missing"}
	}
	if file.PrivateKey == "" {
		return nil, &CredentialError{Reason: "private_key is missing"}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(file.PrivateKey))
	if err != nil {
		return nil, &CredentialError{Reason: "private_key is not an RSA key", Err: err}
	}

	return &ServiceAccount{
		ClientEmail:   file.ClientEmail,
		PrivateKeyID:  file.PrivateKeyID,
		ProjectID:     file.ProjectID,
		PrivateKey:    key,
		PrivateKeyPEM: []byte(file.PrivateKey),
	}, nil
}

// errNoAccessToken is wrapped when the token endpoint answers 2xx without a token
var errNoAccessToken = errors.New("response has no access_token")
