// ABOUTME: Store interfaces and data types for roost persistence
// ABOUTME: Defines Account, ChatMessageRecord, ChatThread and the store contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmptyCounterpart is returned when a chat message record arrives
// without a counterpart account id. The engine drops such messages before
// they reach the store; this is the backstop.
var ErrEmptyCounterpart = errors.New("chat message has empty counterpart account id")

// Account is a logged-in session: a server domain, the access token
// issued for it, and the verified profile of the token's owner. AccountID
// and the profile fields are empty between token exchange and credential
// verification.
type Account struct {
	ID            string
	Domain        string
	AccountID     string
	Username      string
	LocalUsername string
	DisplayName   string
	AvatarURL     string
	AccessToken   string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChatMessageRecord is the persisted projection of one direct status,
// attributed to exactly one counterpart. Records are immutable after
// insertion except for full replacement on re-insert of the same id.
type ChatMessageRecord struct {
	ID                     string
	Content                string
	CounterpartAccountID   string
	CounterpartDisplayName string
	IsFromMe               bool
	CreatedAt              time.Time
}

// ChatThread is a derived, query-time grouping of records by counterpart.
// It is recomputed on every read and never persisted.
type ChatThread struct {
	CounterpartAccountID   string
	CounterpartDisplayName string
	MessageCount           int
	Latest                 *ChatMessageRecord
}

// AccountStore is the session persistence contract used by the login flow
// and every authenticated component.
type AccountStore interface {
	// AddAccount stores a new session for the domain and makes it active.
	// Profile fields are filled later via UpdateActiveAccount.
	AddAccount(ctx context.Context, accessToken, domain string) (*Account, error)

	// GetActiveAccount returns the active session, or ErrNotFound.
	GetActiveAccount(ctx context.Context) (*Account, error)

	// UpdateActiveAccount writes verified profile data onto the active
	// session row.
	UpdateActiveAccount(ctx context.Context, acct *Account) error

	// SetActiveAccount switches the active session.
	SetActiveAccount(ctx context.Context, id string) error

	// ListAccounts returns all stored sessions, newest first.
	ListAccounts(ctx context.Context) ([]*Account, error)
}

// MessageStore is the chat record persistence contract used by the
// aggregation engine and the read paths.
type MessageStore interface {
	// UpsertChatMessage inserts the record, replacing any existing record
	// with the same id.
	UpsertChatMessage(ctx context.Context, rec *ChatMessageRecord) error

	// DeleteChatMessage removes one record by id, or returns ErrNotFound.
	DeleteChatMessage(ctx context.Context, id string) error

	// ListChatThreads groups records by counterpart and returns one
	// thread per counterpart, ordered by latest activity descending.
	ListChatThreads(ctx context.Context) ([]*ChatThread, error)

	// ListChatMessages returns all records for one counterpart, newest
	// first.
	ListChatMessages(ctx context.Context, counterpartAccountID string) ([]*ChatMessageRecord, error)
}
