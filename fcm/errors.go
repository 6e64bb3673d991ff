package fcm

import (
	"fmt"
	"net/http"
)

// CredentialError is returned when the service account is missing or cannot
// be used to sign an assertion
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid service account: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid service account: %s", e.Reason)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// TokenExchangeError is returned when the token endpoint does not hand out an
// access token
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 && e.StatusCode/100 != 2 {
		return fmt.Sprintf("error obtaining access token: %d - %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("error obtaining access token: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// SendError describes a message FCM did not accept for one device token
type SendError struct {
	StatusCode int
	// Status is the canonical google status, e.g. NOT_FOUND
	Status string
	// ErrorCode is the FCM specific code, e.g. UNREGISTERED
	ErrorCode string
	Message   string
	Err       error
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("FCM request failed: %v", e.Err)
	}
	if e.StatusCode/100 == 2 {
		return fmt.Sprintf("FCM error: malformed response: %v", e.Err)
	}
	code := e.ErrorCode
	if code == "" {
		code = e.Status
	}
	if code != "" {
		return fmt.Sprintf("FCM error: %d %s - %s", e.StatusCode, code, e.Message)
	}
	return fmt.Sprintf("FCM error: %d - %s", e.StatusCode, e.Message)
}

func (e *SendError) Unwrap() error { return e.Err }

// Unauthenticated reports whether FCM rejected the bearer token
func (e *SendError) Unauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Status == "UNAUTHENTICATED"
}
