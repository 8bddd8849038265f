// Package store is the SQLite-backed persistence layer for swap records
// and their ledger-state history. It translates channeldb's
// bucket-and-sequence-number scheme (db.go's dbVersions/migration list)
// into row-oriented SQL tables. The SQLite schema is applied as one
// embedded script; golang-migrate runs only the Postgres backend's
// migrations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the narrow persistence surface the coordinator depends on.
// *DB (SQLite, the default) and *PostgresDB (the multi-node alternative)
// both implement it, per SPEC_FULL.md §6's generalization of channeldb's
// backend-agnostic kvdb abstraction.
type Store interface {
	InsertSwap(ctx context.Context, s Swap) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	RecordLedgerState(ctx context.Context, r LedgerStateRecord) error
	GetSwap(ctx context.Context, id uuid.UUID) (Swap, error)
	LoadSecretHash(ctx context.Context, id uuid.UUID) ([32]byte, error)
	LedgerStates(ctx context.Context, id uuid.UUID) ([]LedgerStateRecord, error)
	ListPending(ctx context.Context) ([]Swap, error)
	Close() error
}

// Swap is the persisted representation of a single swap negotiation, per
// spec.md §3's Swap type plus the sequence-numbered audit trail
// SPEC_FULL.md §3 adds on top of it.
type Swap struct {
	ID            uuid.UUID
	Role          string // "alice" or "bob"
	AlphaLedger   string
	BetaLedger    string
	SecretHash    [32]byte
	AlphaExpiry   int64
	BetaExpiry    int64
	Status        string // "pending", "not_swapped", "swapped", "internal_failure"
	CreatedAt     time.Time
}

// LedgerStateRecord is one row of a swap's ledger-state history: every
// transition the chain watcher reports, with a sequence number that
// increases monotonically across all swaps' records (and so within one
// swap too) and the wall-clock time it was observed (channeldb's
// per-record indexing, adapted).
type LedgerStateRecord struct {
	Sequence   int64
	SwapID     uuid.UUID
	Ledger     string // "alpha" or "beta"
	State      string
	Amount     int64
	Location   string
	ObservedAt time.Time
}

// ErrNotFound is returned when a swap ID has no matching row.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: swap not found" }
