package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	_ "github.com/lib/pq"
)

//go:embed migrations/postgres/*.sql
var postgresMigrationFS embed.FS

// PostgresDB is the multi-node alternative to DB, for deployments sharing
// one swap-state database across several swapd instances. Migrations run
// through golang-migrate's postgres driver over a lib/pq connection;
// steady-state queries run through a pgx connection pool, the faster path
// the teacher's own dependency set anticipates for this role.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, migrates the schema to the latest
// version, and returns a ready PostgresDB.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresDB, error) {
	if err := migratePostgres(dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect pgx pool: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func migratePostgres(dsn string) error {
	migrationConn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("store: open lib/pq connection for migration: %w", err)
	}
	defer migrationConn.Close()

	sourceDriver, err := iofs.New(postgresMigrationFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("store: load postgres migrations: %w", err)
	}

	dbDriver, err := postgres.WithInstance(migrationConn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("store: init postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("store: init postgres migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply postgres migrations: %w", err)
	}
	return nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresDB) InsertSwap(ctx context.Context, s Swap) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO swaps (id, role, alpha_ledger, beta_ledger, secret_hash,
		                    alpha_expiry, beta_expiry, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID.String(), s.Role, s.AlphaLedger, s.BetaLedger, s.SecretHash[:],
		s.AlphaExpiry, s.BetaExpiry, s.Status, s.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: insert swap %s: %w", s.ID, err)
	}
	return nil
}

func (db *PostgresDB) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE swaps SET status = $1 WHERE id = $2`, status, id.String())
	if err != nil {
		return fmt.Errorf("store: update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDB) RecordLedgerState(ctx context.Context, r LedgerStateRecord) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO ledger_states (swap_id, ledger, state, amount, location, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.SwapID.String(), r.Ledger, r.State, r.Amount, r.Location, r.ObservedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: record ledger state for %s: %w", r.SwapID, err)
	}
	return nil
}

func (db *PostgresDB) GetSwap(ctx context.Context, id uuid.UUID) (Swap, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, role, alpha_ledger, beta_ledger, secret_hash,
		       alpha_expiry, beta_expiry, status, created_at
		FROM swaps WHERE id = $1`, id.String())

	var s Swap
	var idStr string
	var secretHash []byte
	var createdAt int64
	err := row.Scan(&idStr, &s.Role, &s.AlphaLedger, &s.BetaLedger, &secretHash,
		&s.AlphaExpiry, &s.BetaExpiry, &s.Status, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (db *PostgresDB) LoadSecretHash(ctx context.Context, id uuid.UUID) ([32]byte, error) {
	s, err := db.GetSwap(ctx, id)
	if err != nil {
		return [32]byte{}, err
	}
	return s.SecretHash, nil
}

func (db *PostgresDB) LedgerStates(ctx context.Context, id uuid.UUID) ([]LedgerStateRecord, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT sequence, swap_id, ledger, state, amount, location, observed_at
		FROM ledger_states WHERE swap_id = $1 ORDER BY sequence ASC`, id.String())
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

func (db *PostgresDB) ListPending(ctx context.Context) ([]Swap, error) {
	rows, err := db.pool.Query(ctx, `
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
