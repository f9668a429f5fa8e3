package cloudreve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath   = "/session/token"
	refreshPath = "/session/token/refresh"
)

// Credentials holds the access/refresh token pair behind a reader-writer
// lock. The pair is only ever replaced as a unit; the lock is held for the
// copy or the replace, never across a network call.
type Credentials struct {
	mu  sync.RWMutex
	tok oauth2.Token
}

// NewCredentials returns an empty credential store.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// Bearer returns the current access token for request signing.
func (c *Credentials) Bearer() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tok.AccessToken, c.tok.AccessToken != ""
}

// snapshot returns a copy of the current pair.
func (c *Credentials) snapshot() oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tok
}

// replace swaps in a new pair wholesale.
func (c *Credentials) replace(tok oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tok = tok
}

// loginRequest is the body of POST /session/token. The backend expects
// the capitalized "Password" key.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"Password"` //nolint:tagliatelle // backend key
}

// tokenPayload is the {data} of login and refresh responses. Token is raw
// because older backends return a flat string instead of an object.
type tokenPayload struct {
	Token json.RawMessage `json:"token"`
}

type tokenObject struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	AccessExpires  string `json:"access_expires"`
	RefreshExpires string `json:"refresh_expires"`
}

// Session owns the credential and performs login and refresh through the
// client. It is safe for concurrent use.
type Session struct {
	client *Client
	creds  *Credentials
	logger *slog.Logger
	group  singleflight.Group
}

// NewSession creates a session that writes into creds. The same creds
// should be the BearerSource of client so refreshed tokens are picked up
// by every subsequent request.
func NewSession(client *Client, creds *Credentials, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		client: client,
		creds:  creds,
		logger: logger,
	}
}

// Bearer returns the current access token, if any.
func (s *Session) Bearer() (string, bool) {
	return s.creds.Bearer()
}

// Token returns a copy of the held credential. It satisfies
// oauth2.TokenSource; it never refreshes.
func (s *Session) Token() (*oauth2.Token, error) {
	tok := s.creds.snapshot()
	if tok.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}

	return &tok, nil
}

// Login performs a single authentication exchange and stores the returned
// pair. On any failure the prior credential is left untouched.
func (s *Session) Login(ctx context.Context, identity, secret string) error {
	s.logger.Info("logging in", slog.String("identity", identity))

	env, err := s.client.doAnonymous(ctx, http.MethodPost, loginPath, loginRequest{
		Email:    identity,
		Password: secret,
	})
	if err != nil {
		s.logger.Warn("login failed", slog.String("error", err.Error()))

		return fmt.Errorf("cloudreve: login: %w", err)
	}

	tok, err := parseToken(env, oauth2.Token{})
	if err != nil {
		return fmt.Errorf("cloudreve: login: %w", err)
	}

	s.creds.replace(tok)

	s.logger.Info("login successful",
		slog.Bool("refresh_token", tok.RefreshToken != ""),
		slog.Time("expiry", tok.Expiry),
	)

	return nil
}

// Refresh exchanges the held refresh token for a new pair. Fails with
// ErrNoRefreshToken, without a network call, when none is held. The
// request goes through the normal authenticated path; no body is sent.
// Concurrent callers share one exchange.
func (s *Session) Refresh(ctx context.Context) error {
	prior := s.creds.snapshot()
	if prior.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	_, err, shared := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx, prior)
	})
	if shared {
		s.logger.Debug("joined in-flight token refresh")
	}

	return err
}

func (s *Session) refresh(ctx context.Context, prior oauth2.Token) error {
	env, err := s.client.Do(ctx, http.MethodPost, refreshPath, nil, nil)
	if err != nil {
		return fmt.Errorf("cloudreve: refresh: %w", err)
	}

	tok, err := parseToken(env, prior)
	if err != nil {
		return fmt.Errorf("cloudreve: refresh: %w", err)
	}

	s.creds.replace(tok)

	s.logger.Info("token refreshed", slog.Time("expiry", tok.Expiry))

	return nil
}

// Run refreshes the credential every interval until ctx is canceled.
// Failures are logged and the loop keeps going; a failed refresh leaves the
// previous (possibly expired) credential in place.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Debug("token refresher started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("token refresher stopped")

			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("token refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// parseToken extracts the credential from a login/refresh envelope.
// Precedence: a nested data.token object, then a flat data.token string.
// A nested object without a refresh token keeps prior's refresh token.
func parseToken(env *Envelope, prior oauth2.Token) (oauth2.Token, error) {
	if !hasData(env) {
		return oauth2.Token{}, ErrMissingToken
	}

	var payload tokenPayload
	if err := decodeData(env, &payload); err != nil {
		return oauth2.Token{}, err
	}

	raw := bytes.TrimSpace(payload.Token)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return oauth2.Token{}, ErrMissingToken
	}

	switch raw[0] {
	case '{':
		var obj tokenObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return oauth2.Token{}, &ProtocolError{Body: string(raw), Err: err}
		}

		if obj.AccessToken == "" {
			return oauth2.Token{}, ErrMissingToken
		}

		tok := oauth2.Token{
			AccessToken:  obj.AccessToken,
			TokenType:    "Bearer",
			RefreshToken: obj.RefreshToken,
			Expiry:       parseExpiry(obj.AccessExpires),
		}

		if tok.RefreshToken == "" {
			tok.RefreshToken = prior.RefreshToken
		}

		return tok, nil
	case '"':
		var flat string
		if err := json.Unmarshal(raw, &flat); err != nil {
			return oauth2.Token{}, &ProtocolError{Body: string(raw), Err: err}
		}

		if flat == "" {
			return oauth2.Token{}, ErrMissingToken
		}

		return oauth2.Token{AccessToken: flat, TokenType: "Bearer"}, nil
	default:
		return oauth2.Token{}, &ProtocolError{Body: string(raw), Err: ErrMissingToken}
	}
}

// parseExpiry parses an RFC 3339 expiry. Unknown or malformed values yield
// the zero time, which oauth2.Token treats as "never expires".
func parseExpiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return t
}
