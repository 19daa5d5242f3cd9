package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager keeps accounts and sessions in process memory. It is the
// default for single-binary deployments and for tests; the SQL stores
// implement the same contract for persistent setups.
type Manager struct {
	mu sync.Mutex

	nextAccountID uint64
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord
	accountsByID  map[uint64]accountRecord
	accountsByKey map[string]uint64 // normalized username -> account
}

type sessionRecord struct {
	AccountID uint64
	ExpiresAt time.Time
}

type accountRecord struct {
	AccountID    uint64
	Username     string
	DisplayName  string
	PasswordHash []byte
	Guest        bool
	LastLoginAt  time.Time
}

func NewManager() *Manager {
	return &Manager{
		nextAccountID: 100000, // readable non-trivial id range
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[uint64]accountRecord),
		accountsByKey: make(map[string]uint64),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) Register(username, password string) (Session, error) {
	if err := validateUsername(username); err != nil {
		return Session{}, err
	}
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return Session{}, ErrUsernameTaken
	}

	m.nextAccountID++
	now := time.Now()
	rec := accountRecord{
		AccountID:    m.nextAccountID,
		Username:     normalized,
		DisplayName:  strings.TrimSpace(username),
		PasswordHash: passwordHash,
		LastLoginAt:  now,
	}
	m.accountsByID[rec.AccountID] = rec
	m.accountsByKey[normalized] = rec.AccountID

	return m.issueSessionLocked(rec, now), nil
}

func (m *Manager) Login(username, password string) (Session, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.accountsByKey[normalized]
	if !exists {
		return Session{}, ErrInvalidCredentials
	}
	rec := m.accountsByID[accountID]
	if rec.Guest || len(rec.PasswordHash) == 0 {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	now := time.Now()
	rec.LastLoginAt = now
	m.accountsByID[accountID] = rec
	return m.issueSessionLocked(rec, now), nil
}

// Guest mints an anonymous account so drop-in players can hold a session
// without registering.
func (m *Manager) Guest(displayName string) (Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "guest"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAccountID++
	now := time.Now()
	rec := accountRecord{
		AccountID:   m.nextAccountID,
		Username:    "guest_" + mustToken()[:12],
		DisplayName: displayName,
		Guest:       true,
		LastLoginAt: now,
	}
	m.accountsByID[rec.AccountID] = rec
	m.accountsByKey[rec.Username] = rec.AccountID

	return m.issueSessionLocked(rec, now), nil
}

func (m *Manager) ResolveSession(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sess, exists := m.sessions[token]
	if !exists {
		return Session{}, false
	}
	if !now.Before(sess.ExpiresAt) {
		delete(m.sessions, token)
		return Session{}, false
	}
	// Sliding expiry.
	sess.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = sess

	rec := m.accountsByID[sess.AccountID]
	return Session{
		AccountID:   rec.AccountID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		Token:       token,
		Guest:       rec.Guest,
	}, true
}

func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *Manager) Close() error { return nil }

func (m *Manager) issueSessionLocked(rec accountRecord, now time.Time) Session {
	token := mustToken()
	m.sessions[token] = sessionRecord{
		AccountID: rec.AccountID,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return Session{
		AccountID:   rec.AccountID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		Token:       token,
		Guest:       rec.Guest,
	}
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
