// Package auth implements the admin authentication gate: a password check
// that issues opaque bearer tokens kept in an in-process session store.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword is returned by Login when the supplied password doesn't
// match the configured admin secret.
var ErrInvalidPassword = errors.New("invalid password")

const (
	// DefaultSessionTTL is how long an issued token stays valid.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultSweepInterval is how often expired tokens are purged.
	DefaultSweepInterval = time.Hour

	tokenBytes = 32
)

// SessionStore issues and validates admin session tokens. Tokens live only in
// process memory: the store starts empty and everything is lost on restart.
type SessionStore struct {
	secret     string
	sessionTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]time.Time
	now      func() time.Time
}

// NewSessionStore creates a store that validates logins against secret.
// The secret may be either the plain admin password or a bcrypt hash of it
// (recognized by the $2 prefix). A non-positive sessionTTL falls back to
// DefaultSessionTTL.
func NewSessionStore(secret string, sessionTTL time.Duration) *SessionStore {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	return &SessionStore{
		secret:     secret,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// Login checks password against the configured secret and, on success, issues
// a new token valid for the session TTL.
func (s *SessionStore) Login(password string) (string, error) {
	const op = "auth.SessionStore.Login"

	if !s.secretMatches(password) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidPassword)
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.sessions[token] = s.now().Add(s.sessionTTL)
	s.mu.Unlock()

	return token, nil
}

func (s *SessionStore) secretMatches(password string) bool {
	if strings.HasPrefix(s.secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(s.secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(password)) == 1
}

// Logout invalidates token immediately. It is a no-op for unknown tokens.
func (s *SessionStore) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Check reports whether token exists and hasn't expired.
func (s *SessionStore) Check(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	expiry, ok := s.sessions[token]
	s.mu.RUnlock()

	return ok && s.now().Before(expiry)
}

// Sweep removes expired tokens and returns how many were purged.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for token, expiry := range s.sessions {
		if !now.Before(expiry) {
			delete(s.sessions, token)
			purged++
		}
	}

	return purged
}

// StartSweeper purges expired tokens every interval until ctx is canceled.
// It blocks, so callers run it in its own goroutine.
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
