package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	// A name-scoped memory DB keeps each test isolated even under
	// modernc.org/sqlite's shared cache mode.
	db, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetSwap(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := Swap{
		ID:          uuid.New(),
		Role:        "alice",
		AlphaLedger: "bitcoin",
		BetaLedger:  "ethereum",
		SecretHash:  [32]byte{1, 2, 3},
		AlphaExpiry: 1000,
		BetaExpiry:  900,
		Status:      "pending",
		CreatedAt:   time.Unix(1_700_000_000, 0),
	}
	require.NoError(t, db.InsertSwap(ctx, s))

	got, err := db.GetSwap(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, s.Role, got.Role)
	require.Equal(t, s.AlphaLedger, got.AlphaLedger)
	require.Equal(t, s.SecretHash, got.SecretHash)
	require.Equal(t, s.Status, got.Status)
}

func TestGetSwapNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetSwap(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := Swap{ID: uuid.New(), Role: "bob", Status: "pending", CreatedAt: time.Unix(1, 0)}
	require.NoError(t, db.InsertSwap(ctx, s))

	require.NoError(t, db.UpdateStatus(ctx, s.ID, "swapped"))

	got, err := db.GetSwap(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "swapped", got.Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	db := openTestDB(t)
	err := db.UpdateStatus(context.Background(), uuid.New(), "swapped")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAndListLedgerStates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := Swap{ID: uuid.New(), Role: "alice", CreatedAt: time.Unix(1, 0)}
	require.NoError(t, db.InsertSwap(ctx, s))

	require.NoError(t, db.RecordLedgerState(ctx, LedgerStateRecord{
		SwapID: s.ID, Ledger: "alpha", State: "deployed", ObservedAt: time.Unix(10, 0),
	}))
	require.NoError(t, db.RecordLedgerState(ctx, LedgerStateRecord{
		SwapID: s.ID, Ledger: "alpha", State: "funded", Amount: 100_000, ObservedAt: time.Unix(11, 0),
	}))

	states, err := db.LedgerStates(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.Equal(t, "deployed", states[0].State)
	require.Equal(t, "funded", states[1].State)
	require.True(t, states[0].Sequence < states[1].Sequence)
}

func TestListPending(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	pending := Swap{ID: uuid.New(), Role: "alice", Status: "pending", CreatedAt: time.Unix(1, 0)}
	done := Swap{ID: uuid.New(), Role: "bob", Status: "swapped", CreatedAt: time.Unix(1, 0)}
	require.NoError(t, db.InsertSwap(ctx, pending))
	require.NoError(t, db.InsertSwap(ctx, done))

	got, err := db.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pending.ID, got[0].ID)
}
