package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "whist_local.db"

// SQLiteStore persists accounts and sessions in a local sqlite file.
// Single connection, WAL journaling.
type SQLiteStore struct {
	db         *sql.DB
	sessionTTL time.Duration
}

func NewSQLiteStoreFromEnv() (*SQLiteStore, error) {
	dbPath, err := localDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(dbPath, sessionTTLFromEnv())
}

func NewSQLiteStore(dbPath string, sessionTTL time.Duration) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, sessionTTL: sessionTTL}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Register(username, password string) (Session, error) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	displayName := strings.TrimSpace(username)
	res, err := tx.ExecContext(ctx, `
INSERT INTO accounts (username, display_name, password_hash, is_guest, created_at_ms, last_login_at_ms)
VALUES (?, ?, ?, 0, ?, ?)
`, normalized, displayName, string(passwordHash), nowMs, nowMs)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return Session{}, ErrUsernameTaken
		}
		return Session{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Session{}, err
	}

	token, err := s.issueSessionTx(ctx, tx, uint64(id), nowMs)
	if err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return Session{AccountID: uint64(id), Username: normalized, DisplayName: displayName, Token: token}, nil
}

func (s *SQLiteStore) Login(username, password string) (Session, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		accountID    uint64
		displayName  string
		passwordHash string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, display_name, password_hash
FROM accounts
WHERE username = ? AND is_guest = 0
`, normalized).Scan(&accountID, &displayName, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if passwordHash == "" || bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
UPDATE accounts SET last_login_at_ms = ? WHERE id = ?
`, nowMs, accountID); err != nil {
		return Session{}, err
	}
	token, err := s.issueSessionTx(ctx, tx, accountID, nowMs)
	if err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return Session{AccountID: accountID, Username: normalized, DisplayName: displayName, Token: token}, nil
}

func (s *SQLiteStore) Guest(displayName string) (Session, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "guest"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return Session{}, err
		}

		nowMs := time.Now().UTC().UnixMilli()
		guestUsername := "guest_" + mustToken()[:12]
		res, err := tx.ExecContext(ctx, `
INSERT INTO accounts (username, display_name, password_hash, is_guest, created_at_ms, last_login_at_ms)
VALUES (?, ?, '', 1, ?, ?)
`, guestUsername, displayName, nowMs, nowMs)
		if err != nil {
			_ = tx.Rollback()
			if isSQLiteUniqueViolation(err) {
				continue
			}
			return Session{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return Session{}, err
		}
		token, err := s.issueSessionTx(ctx, tx, uint64(id), nowMs)
		if err != nil {
			_ = tx.Rollback()
			return Session{}, err
		}
		if err := tx.Commit(); err != nil {
			return Session{}, err
		}
		return Session{AccountID: uint64(id), Username: guestUsername, DisplayName: displayName, Token: token, Guest: true}, nil
	}
	return Session{}, fmt.Errorf("failed to allocate guest account")
}

func (s *SQLiteStore) ResolveSession(token string) (Session, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	expiresAtMs := nowMs + s.sessionTTL.Milliseconds()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, false
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE sessions
SET last_seen_at_ms = ?, expires_at_ms = ?
WHERE token = ? AND revoked_at_ms IS NULL AND expires_at_ms > ?
`, nowMs, expiresAtMs, token, nowMs)
	if err != nil {
		return Session{}, false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Session{}, false
	}

	var sess Session
	var guest int
	err = tx.QueryRowContext(ctx, `
SELECT a.id, a.username, a.display_name, a.is_guest
FROM sessions AS s
JOIN accounts AS a ON a.id = s.account_id
WHERE s.token = ?
`, token).Scan(&sess.AccountID, &sess.Username, &sess.DisplayName, &guest)
	if err != nil {
		return Session{}, false
	}
	if err := tx.Commit(); err != nil {
		return Session{}, false
	}
	sess.Token = token
	sess.Guest = guest != 0
	return sess, true
}

func (s *SQLiteStore) Logout(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	nowMs := time.Now().UTC().UnixMilli()
	_, _ = s.db.ExecContext(ctx, `
UPDATE sessions SET revoked_at_ms = ? WHERE token = ? AND revoked_at_ms IS NULL
`, nowMs, token)
}

func (s *SQLiteStore) issueSessionTx(ctx context.Context, tx *sql.Tx, accountID uint64, nowMs int64) (string, error) {
	expiresAtMs := nowMs + s.sessionTTL.Milliseconds()
	for i := 0; i < 5; i++ {
		token := mustToken()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (token, account_id, issued_at_ms, expires_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?, ?)
`, token, accountID, nowMs, expiresAtMs, nowMs); err != nil {
			if isSQLiteUniqueViolation(err) {
				continue
			}
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("failed to generate unique session token")
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    is_guest INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_accounts_username ON accounts(lower(username))`,
		`
CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    account_id INTEGER NOT NULL,
    issued_at_ms INTEGER NOT NULL,
    expires_at_ms INTEGER NOT NULL,
    revoked_at_ms INTEGER,
    last_seen_at_ms INTEGER NOT NULL,
    FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id, expires_at_ms DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func localDatabasePathFromEnv() (string, error) {
	if v := strings.TrimSpace(os.Getenv("AUTH_SQLITE_PATH")); v != "" {
		return filepath.Clean(v), nil
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "whist-lite", defaultLocalDBName), nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
