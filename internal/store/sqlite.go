package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var sqliteMigrationFS embed.FS

// DB is the SQLite-backed implementation of the swap state store. It is
// the default backend per SPEC_FULL.md §6; internal/store's interface is
// kept narrow enough that PostgresDB (jackc/pgx) can sit behind the same
// surface for multi-node deployments. SQLite's schema is brought up with
// a single idempotent script rather than golang-migrate's version-tracked
// runner: golang-migrate's sqlite3 driver is built on mattn/go-sqlite3
// (cgo), which conflicts with the teacher's pure-Go modernc.org/sqlite
// choice, so golang-migrate is instead wired to the Postgres backend
// (postgres.go), where its driver is lib/pq-based and has no such
// conflict.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the embedded schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := applySchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{sql: sqlDB}, nil
}

func applySchema(sqlDB *sql.DB) error {
	schema, err := sqliteMigrationFS.ReadFile("migrations/0001_init.up.sql")
	if err != nil {
		return fmt.Errorf("store: load schema: %w", err)
	}

	var exists int
	err = sqlDB.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='swaps'`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: check schema: %w", err)
	}
	if exists > 0 {
		return nil
	}

	if _, err := sqlDB.Exec(string(schema)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error { return db.sql.Close() }

// InsertSwap records a newly accepted swap's immutable parameters.
func (db *DB) InsertSwap(ctx context.Context, s Swap) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO swaps (id, role, alpha_ledger, beta_ledger, secret_hash,
		                    alpha_expiry, beta_expiry, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.Role, s.AlphaLedger, s.BetaLedger, s.SecretHash[:],
		s.AlphaExpiry, s.BetaExpiry, s.Status, s.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: insert swap %s: %w", s.ID, err)
	}
	return nil
}

// UpdateStatus sets a swap's terminal (or pending) status, per the
// coordinator's step-5 status computation in spec.md §4.5.
func (db *DB) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := db.sql.ExecContext(ctx,
		`UPDATE swaps SET status = ? WHERE id = ?`, status, id.String())
	if err != nil {
		return fmt.Errorf("store: update status for %s: %w", id, err)
	}
	return checkRowsAffected(res, id)
}

// RecordLedgerState appends one ledger-state transition to a swap's audit
// trail. The sequence number is assigned by SQLite's AUTOINCREMENT, giving
// a total order across all swaps that callers can use as a resume cursor.
func (db *DB) RecordLedgerState(ctx context.Context, r LedgerStateRecord) error {
	_, err := db.sql.ExecContext(ctx, `
		INSERT INTO ledger_states (swap_id, ledger, state, amount, location, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.SwapID.String(), r.Ledger, r.State, r.Amount, r.Location, r.ObservedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: record ledger state for %s: %w", r.SwapID, err)
	}
	return nil
}

// GetSwap loads a swap's current row.
func (db *DB) GetSwap(ctx context.Context, id uuid.UUID) (Swap, error) {
	row := db.sql.QueryRowContext(ctx, `
		SELECT id, role, alpha_ledger, beta_ledger, secret_hash,
		       alpha_expiry, beta_expiry, status, created_at
		FROM swaps WHERE id = ?`, id.String())

	var s Swap
	var idStr string
	var secretHash []byte
	var createdAt int64
	err := row.Scan(&idStr, &s.Role, &s.AlphaLedger, &s.BetaLedger, &secretHash,
		&s.AlphaExpiry, &s.BetaExpiry, &s.Status, &createdAt)
	if err == sql.ErrNoRows {
		return Swap{}, ErrNotFound
	}
	if err != nil {
		return Swap{}, fmt.Errorf("store: get swap %s: %w", id, err)
	}

	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return Swap{}, fmt.Errorf("store: parse swap id %q: %w", idStr, err)
	}
	copy(s.SecretHash[:], secretHash)
	s.CreatedAt = time.Unix(createdAt, 0)
	return s, nil
}

// LoadSecretHash is a narrow accessor for the one field the secret
// registry needs to re-derive its lookup key after a restart.
func (db *DB) LoadSecretHash(ctx context.Context, id uuid.UUID) ([32]byte, error) {
	s, err := db.GetSwap(ctx, id)
	if err != nil {
		return [32]byte{}, err
	}
	return s.SecretHash, nil
}

// LedgerStates lists a swap's full ledger-state history in the order it
// was recorded, for replaying a swap's progress after a restart.
func (db *DB) LedgerStates(ctx context.Context, id uuid.UUID) ([]LedgerStateRecord, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT sequence, swap_id, ledger, state, amount, location, observed_at
		FROM ledger_states WHERE swap_id = ? ORDER BY sequence ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("store: list ledger states for %s: %w", id, err)
	}
	defer rows.Close()

	var out []LedgerStateRecord
	for rows.Next() {
		var r LedgerStateRecord
		var swapIDStr string
		var observedAt int64
		if err := rows.Scan(&r.Sequence, &swapIDStr, &r.Ledger, &r.State,
			&r.Amount, &r.Location, &observedAt); err != nil {
			return nil, fmt.Errorf("store: scan ledger state row: %w", err)
		}
		r.SwapID, err = uuid.Parse(swapIDStr)
		if err != nil {
			return nil, fmt.Errorf("store: parse swap id %q: %w", swapIDStr, err)
		}
		r.ObservedAt = time.Unix(observedAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListPending returns every swap not yet in a terminal status, so the
// daemon can resume their watcher+driver tasks after a restart.
func (db *DB) ListPending(ctx context.Context) ([]Swap, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT id, role, alpha_ledger, beta_ledger, secret_hash,
		       alpha_expiry, beta_expiry, status, created_at
		FROM swaps WHERE status = 'pending'`)
	if err != nil {
		return nil, fmt.Errorf("store: list pending swaps: %w", err)
	}
	defer rows.Close()

	var out []Swap
	for rows.Next() {
		var s Swap
		var idStr string
		var secretHash []byte
		var createdAt int64
		if err := rows.Scan(&idStr, &s.Role, &s.AlphaLedger, &s.BetaLedger, &secretHash,
			&s.AlphaExpiry, &s.BetaExpiry, &s.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan pending swap row: %w", err)
		}
		s.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("store: parse swap id %q: %w", idStr, err)
		}
		copy(s.SecretHash[:], secretHash)
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func checkRowsAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
