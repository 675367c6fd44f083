// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite
// ABOUTME: Provides account/session and chat record persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements AccountStore and MessageStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps reads cheap while a sync is writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			domain         TEXT NOT NULL,
			account_id     TEXT NOT NULL DEFAULT '',
			username       TEXT NOT NULL DEFAULT '',
			local_username TEXT NOT NULL DEFAULT '',
			display_name   TEXT NOT NULL DEFAULT '',
			avatar_url     TEXT NOT NULL DEFAULT '',
			access_token   TEXT NOT NULL,
			active         INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_active ON accounts(active);
		CREATE INDEX IF NOT EXISTS idx_accounts_domain ON accounts(domain, account_id);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id                       TEXT PRIMARY KEY,
			content                  TEXT NOT NULL,
			counterpart_account_id   TEXT NOT NULL,
			counterpart_display_name TEXT NOT NULL,
			is_from_me               INTEGER NOT NULL,
			created_at               TEXT NOT NULL,

			CHECK (counterpart_account_id <> '')
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_counterpart
			ON chat_messages(counterpart_account_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// AddAccount stores a fresh session for the domain and activates it,
// deactivating every other session. Called by the login flow right after
// the token exchange, before the profile is verified.
func (s *SQLiteStore) AddAccount(ctx context.Context, accessToken, domain string) (*Account, error) {
	now := time.Now().UTC()
	acct := &Account{
		ID:          uuid.New().String(),
		Domain:      domain,
		AccessToken: accessToken,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET active = 0 WHERE active = 1`); err != nil {
		return nil, fmt.Errorf("deactivating accounts: %w", err)
	}

	// A half-finished login against the same domain leaves a row with an
	// empty account_id; replace it rather than accumulating orphans.
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE domain = ? AND account_id = ''`, domain); err != nil {
		return nil, fmt.Errorf("pruning unverified accounts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, domain, access_token, active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`, acct.ID, acct.Domain, acct.AccessToken,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing account: %w", err)
	}

	s.logger.Debug("added account", "id", acct.ID, "domain", domain)
	return acct, nil
}

// GetActiveAccount returns the active session.
// Returns ErrNotFound when no account is logged in.
func (s *SQLiteStore) GetActiveAccount(ctx context.Context) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, domain, account_id, username, local_username, display_name,
		       avatar_url, access_token, active, created_at, updated_at
		FROM accounts
		WHERE active = 1
		LIMIT 1
	`)
	return scanAccount(row)
}

// UpdateActiveAccount writes verified profile data onto the active row.
// A previous session for the same (domain, account) pair is removed so a
// re-login does not leave duplicates behind.
func (s *SQLiteStore) UpdateActiveAccount(ctx context.Context, acct *Account) error {
	active, err := s.GetActiveAccount(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if acct.AccountID != "" {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM accounts WHERE domain = ? AND account_id = ? AND id != ?
		`, active.Domain, acct.AccountID, active.ID); err != nil {
			return fmt.Errorf("pruning superseded accounts: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET account_id = ?, username = ?, local_username = ?,
		    display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?
	`, acct.AccountID, acct.Username, acct.LocalUsername,
		acct.DisplayName, acct.AvatarURL,
		time.Now().UTC().Format(time.RFC3339), active.ID)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account update: %w", err)
	}

	s.logger.Debug("updated active account", "id", active.ID, "account_id", acct.AccountID)
	return nil
}

// SetActiveAccount switches the active session to the given row id.
// Returns ErrNotFound if no such account exists.
func (s *SQLiteStore) SetActiveAccount(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE accounts SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("activating account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET active = 0 WHERE id != ?`, id); err != nil {
		return fmt.Errorf("deactivating accounts: %w", err)
	}

	return tx.Commit()
}

// ListAccounts returns all stored sessions, newest first.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, account_id, username, local_username, display_name,
		       avatar_url, access_token, active, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// rowScanner lets scanAccount work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var acct Account
	var active int
	var createdAt, updatedAt string

	err := row.Scan(&acct.ID, &acct.Domain, &acct.AccountID, &acct.Username,
		&acct.LocalUsername, &acct.DisplayName, &acct.AvatarURL,
		&acct.AccessToken, &active, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	acct.Active = active != 0
	acct.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	acct.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &acct, nil
}

// UpsertChatMessage inserts a chat record, replacing any existing record
// with the same id. Re-inserting overlapping pagination results is a
// no-op apart from the replacement.
func (s *SQLiteStore) UpsertChatMessage(ctx context.Context, rec *ChatMessageRecord) error {
	if rec.CounterpartAccountID == "" {
		return ErrEmptyCounterpart
	}

	isFromMe := 0
	if rec.IsFromMe {
		isFromMe = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO chat_messages
			(id, content, counterpart_account_id, counterpart_display_name, is_from_me, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Content, rec.CounterpartAccountID, rec.CounterpartDisplayName,
		isFromMe, rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting chat message: %w", err)
	}

	s.logger.Debug("upserted chat message", "id", rec.ID, "counterpart", rec.CounterpartAccountID)
	return nil
}

// DeleteChatMessage removes one record by id.
// Returns ErrNotFound if the record doesn't exist.
func (s *SQLiteStore) DeleteChatMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chat message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted chat message", "id", id)
	return nil
}

// ListChatThreads groups all records by counterpart and returns one
// thread per counterpart with its count and latest message, ordered by
// latest activity descending.
//
// The bare columns in the GROUP BY query come from the row that supplies
// MAX(created_at); SQLite guarantees this for a single min/max aggregate.
func (s *SQLiteStore) ListChatThreads(ctx context.Context) ([]*ChatThread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, counterpart_account_id, counterpart_display_name,
		       is_from_me, MAX(created_at) AS created_at, COUNT(*) AS message_count
		FROM chat_messages
		GROUP BY counterpart_account_id
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chat threads: %w", err)
	}
	defer rows.Close()

	var threads []*ChatThread
	for rows.Next() {
		var rec ChatMessageRecord
		var isFromMe, count int
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Content, &rec.CounterpartAccountID,
			&rec.CounterpartDisplayName, &isFromMe, &createdAt, &count); err != nil {
			return nil, fmt.Errorf("scanning thread row: %w", err)
		}

		rec.IsFromMe = isFromMe != 0
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		threads = append(threads, &ChatThread{
			CounterpartAccountID:   rec.CounterpartAccountID,
			CounterpartDisplayName: rec.CounterpartDisplayName,
			MessageCount:           count,
			Latest:                 &rec,
		})
	}

	return threads, rows.Err()
}

// ListChatMessages returns all records for one counterpart, newest first.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, counterpartAccountID string) ([]*ChatMessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, counterpart_account_id, counterpart_display_name, is_from_me, created_at
		FROM chat_messages
		WHERE counterpart_account_id = ?
		ORDER BY created_at DESC, id DESC
	`, counterpartAccountID)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var records []*ChatMessageRecord
	for rows.Next() {
		var rec ChatMessageRecord
		var isFromMe int
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Content, &rec.CounterpartAccountID,
			&rec.CounterpartDisplayName, &isFromMe, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		rec.IsFromMe = isFromMe != 0
		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ensure SQLiteStore implements the store contracts
var _ AccountStore = (*SQLiteStore)(nil)
var _ MessageStore = (*SQLiteStore)(nil)
