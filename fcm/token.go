package fcm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/sync/singleflight"
)

const (
	// MessagingScope is the OAuth2 scope needed to send FCM messages
	MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	assertionLifetime = time.Hour
	// tokens are refreshed this long before they expire
	expiryDelta = time.Minute
	// a failed exchange is handed to every caller for this long
	failureBackoff = time.Minute
)

// TokenSource exchanges the service account for bearer tokens. A token is
// derived on first use and reused until shortly before it expires or until it
// is invalidated. Concurrent callers share one exchange. It is safe for
// concurrent use.
type TokenSource struct {
	serviceAccountJSON []byte
	tokenURL           string
	httpClient         *http.Client
	now                func() time.Time
	flight             singleflight.Group

	mu          sync.Mutex
	conf        *jwt.Config
	token       string
	expiry      time.Time
	err         error
	failedUntil time.Time
}

// NewTokenSource creates a token source for the service account JSON key
func NewTokenSource(serviceAccountJSON []byte, tokenURL string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenSource{
		serviceAccountJSON: serviceAccountJSON,
		tokenURL:           tokenURL,
		httpClient:         httpClient,
		now:                time.Now,
	}
}

// Token returns a valid bearer token, exchanging a new assertion when needed.
// A failed exchange is returned to every caller until failureBackoff elapses.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, err, ok := s.cached(); ok {
		return token, err
	}

	v, err, _ := s.flight.Do("token", func() (interface{}, error) {
		if token, err, ok := s.cached(); ok {
			return token, err
		}

		token, expiry, err := s.exchange(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err, s.failedUntil = err, s.now().Add(failureBackoff)
			return "", err
		}
		s.token, s.expiry, s.err = token, expiry, nil
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenSource) cached() (string, error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(expiryDelta).Before(s.expiry) {
		return s.token, nil, true
	}
	if s.err != nil && now.Before(s.failedUntil) {
		return "", s.err, true
	}
	return "", nil, false
}

// Invalidate drops token if it is still the cached one, so the next call to
// Token derives a fresh one
func (s *TokenSource) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == token {
		s.token = ""
		s.expiry = time.Time{}
	}
}

func (s *TokenSource) config() (*jwt.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conf != nil {
		return s.conf, nil
	}
	account, err := ParseServiceAccount(s.serviceAccountJSON)
	if err != nil {
		return nil, err
	}
	s.conf = &jwt.Config{
		Email:        account.ClientEmail,
		Subject:      account.ClientEmail,
		PrivateKey:   account.PrivateKeyPEM,
		PrivateKeyID: account.PrivateKeyID,
		Scopes:       []string{MessagingScope},
		TokenURL:     s.tokenURL,
	}
	return s.conf, nil
}

func (s *TokenSource) exchange(ctx context.Context) (string, time.Time, error) {
	conf, err := s.config()
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := s.now()
	client := &http.Client{
		Timeout:   s.httpClient.Timeout,
		Transport: contextTransport{ctx: ctx, base: s.httpClient.Transport},
	}
	tok, err := conf.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, client)).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", time.Time{}, &TokenExchangeError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       strings.TrimSpace(string(retrieveErr.Body)),
				Err:        err,
			}
		}
		return "", time.Time{}, &TokenExchangeError{Err: err}
	}
	if tok.AccessToken == "" {
		return "", time.Time{}, &TokenExchangeError{Err: errNoAccessToken}
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = issuedAt.Add(assertionLifetime)
	}

	zap.S().Debugw("obtained fcm access token", "expiresAt", expiry)
	return tok.AccessToken, expiry, nil
}

// contextTransport binds outgoing requests to ctx, the token endpoint client
// does not carry one itself
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}
