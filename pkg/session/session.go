// Package session stores the GitHub credential the CLI signs in with and
// resolves the token used for profile lookups.
//
// Profile enrichment works without a token, but GitHub allows 60
// unauthenticated requests per hour against 5000 authenticated ones, so the
// token matters. [TokenProvider] abstracts where it comes from; [Chain]
// tries several sources in order (flag, environment, config, saved login).
//
// # Usage
//
//	store, err := session.NewCLIStore("") // ~/.config/devscout/sessions/
//	sess, err := session.New(token.AccessToken, "octocat", session.DefaultTTL)
//	err = store.SaveSession(ctx, sess)
//
//	tokens := session.Chain{session.EnvToken("GITHUB_TOKEN"), store}
//	token, err := tokens.Token(ctx)
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// Session stores the credential of a signed-in GitHub user.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	Login       string    `json:"login"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// UserID returns a storage-compatible user identifier, "github:<login>".
// Saved candidates record it as the user who saved them.
func (s *Session) UserID() string {
	if s == nil || s.Login == "" {
		return ""
	}
	return "github:" + s.Login
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}

// DefaultTTL is how long a saved login is trusted before the user must
// sign in again. Device-flow tokens do not expire on their own.
const DefaultTTL = 90 * 24 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a new session with the given token and login.
func New(accessToken, login string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:          id,
		AccessToken: accessToken,
		Login:       login,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}, nil
}

// =============================================================================
// Token providers
// =============================================================================

// TokenProvider supplies an optional GitHub bearer token. An empty token
// with a nil error means "no credential available".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically from a flag or config file.
type StaticToken string

// Token implements [TokenProvider].
func (t StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// EnvToken reads the token from an environment variable.
type EnvToken string

// Token implements [TokenProvider].
func (e EnvToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(string(e))), nil
}

// Chain returns the first non-empty token from its providers, in order.
// A provider error stops the chain.
type Chain []TokenProvider

// Token implements [TokenProvider].
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		tok, err := p.Token(ctx)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
