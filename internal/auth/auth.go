// Package auth implements the static-credential login and the in-memory
// session token store behind the invoiced cookie.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/manal-catering/invoicer/internal/config"
)

// CookieName is the session cookie the server sets on login.
const CookieName = "auth_token"

// Manager checks credentials and tracks live session tokens. Tokens are
// random, expire after the configured TTL, and live only in memory: a
// restart logs everyone out, which is acceptable for a single-operator tool.
type Manager struct {
	username []byte
	password []byte
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry

	now func() time.Time
}

// NewManager creates a Manager from the configured credential pair.
func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		username: hashCredential(cfg.Username),
		password: hashCredential(cfg.Password),
		ttl:      cfg.SessionTTL,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Login validates the credential pair and, on success, mints a session
// token. The comparison is constant-time over credential hashes so neither
// length nor prefix leaks through timing.
func (m *Manager) Login(username, password string) (string, bool) {
	userOK := subtle.ConstantTimeCompare(hashCredential(username), m.username)
	passOK := subtle.ConstantTimeCompare(hashCredential(password), m.password)
	if userOK&passOK != 1 {
		return "", false
	}

	token := newToken()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = m.now().Add(m.ttl)
	return token, true
}

// Validate reports whether the token names a live session. Expired tokens
// are dropped on the way through.
func (m *Manager) Validate(token string) bool {
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.sessions[token]
	if !ok {
		return false
	}
	if m.now().After(expiry) {
		delete(m.sessions, token)
		return false
	}
	return true
}

// Revoke ends the session for the token, if any.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func hashCredential(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process cannot mint sessions at all.
		panic("auth: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
