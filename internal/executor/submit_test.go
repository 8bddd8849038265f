package executor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/secret"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/wallet"
)

var executorTestLog = btclog.NewBackend(io.Discard).Logger("TEST")

// staticSource feeds a single, fixed set of events once and then reports no
// further blocks, enough to let StartSwap's initial scan settle so a test
// can call Coordinator.Snapshot — mirrors internal/swap/coordinator_test.go's
// own fakeSource, reimplemented locally since that one is unexported to its
// package.
type staticSource struct {
	mu     sync.Mutex
	idx    int
	groups [][]chainwatch.SwapEvent
}

func (s *staticSource) Tick() time.Duration { return 5 * time.Millisecond }

func (s *staticSource) LatestBlock(ctx context.Context) (chainwatch.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.idx
	if i >= len(s.groups) {
		i = len(s.groups) - 1
	}
	return chainwatch.Block{Hash: fmt.Sprintf("b%d", i), Time: time.Now()}, nil
}

func (s *staticSource) BlockByHash(ctx context.Context, hash string) (chainwatch.Block, error) {
	return chainwatch.Block{}, fmt.Errorf("staticSource: no parent for %s", hash)
}

func (s *staticSource) EventsInBlock(ctx context.Context, b chainwatch.Block) ([]chainwatch.SwapEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var i int
	fmt.Sscanf(b.Hash, "b%d", &i)
	if i != s.idx || i >= len(s.groups) {
		return nil, nil
	}
	events := s.groups[i]
	s.idx++
	return events, nil
}

func openExecutorTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSubmitDispatchesFundAlphaToBitcoinBackend exercises Submit end to end
// against a live Coordinator: the coordinator recommends FundAlpha for a
// freshly started swap with both legs undeployed, and Submit must route
// that recommendation to the bitcoin backend using the swap's own
// persisted parameters.
func TestSubmitDispatchesFundAlphaToBitcoinBackend(t *testing.T) {
	st := openExecutorTestStore(t)
	secrets := secret.NewRegistry()

	swapID := uuid.New()
	hash, err := secrets.GenerateFor(swapID)
	require.NoError(t, err)

	var masterSeed wallet.Seed
	masterSeed[0] = 0x42

	var redeemSeed, refundSeed wallet.Seed
	redeemSeed[0] = 0xAA
	refundSeed[0] = 0xBB

	alphaParams := htlc.HtlcParams{
		Ledger:         htlc.LedgerBitcoin,
		Asset:          htlc.Asset{Kind: htlc.AssetSatoshis, Satoshis: 50_000},
		RedeemIdentity: redeemSeed.BitcoinPKH(),
		RefundIdentity: refundSeed.BitcoinPKH(),
		Expiry:         time.Now().Add(48 * time.Hour).Unix(),
		SecretHash:     hash,
	}
	betaParams := htlc.HtlcParams{
		Ledger:     htlc.LedgerEthereum,
		Asset:      htlc.Asset{Kind: htlc.AssetEther, Quantity: nil},
		Expiry:     time.Now().Add(24 * time.Hour).Unix(),
		SecretHash: hash,
	}

	fakeBTC := &fakeBitcoin{}
	fakeETH := newFakeEthereum()

	exec := &Executor{
		Bitcoin:    fakeBTC,
		Ethereum:   fakeETH,
		Net:        &chaincfg.RegressionNetParams,
		MasterSeed: masterSeed,
		Secrets:    secrets,
		FeeRate:    10,
		Log:        executorTestLog,
	}

	c := swap.NewCoordinator(st, secrets, exec, executorTestLog)
	exec.Coordinator = c
	t.Cleanup(c.Shutdown)

	sw := &swap.Swap{
		ID:            swapID,
		Role:          action.RoleAlice,
		AlphaParams:   alphaParams,
		BetaParams:    betaParams,
		AlphaExpiry:   alphaParams.Expiry,
		BetaExpiry:    betaParams.Expiry,
		Communication: swap.CommunicationAccepted,
		SecretHash:    hash,
		StartOfSwap:   time.Now().Add(-time.Minute),
	}

	// alphaSrc never reports an event: FundAlpha must still be recommended
	// purely from the swap's initial (NotDeployed, NotDeployed) state.
	// betaSrc reports one unrelated Beta-Deployed event, just to drive the
	// coordinator's run loop through one evaluateAndAct pass (C4 is
	// re-evaluated off *any* incoming event, per coordinator.go's
	// applyEvent, not only alpha-side ones).
	alphaSrc := &staticSource{groups: [][]chainwatch.SwapEvent{{}}}
	betaSrc := &staticSource{groups: [][]chainwatch.SwapEvent{
		{{Kind: chainwatch.EventDeployed, Location: "0xbeta"}},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.StartSwap(ctx, sw, alphaSrc, betaSrc))

	require.Eventually(t, func() bool {
		return fakeBTC.sentAddress() != nil
	}, 3*time.Second, 10*time.Millisecond, "executor never submitted FundAlpha to the bitcoin backend")

	bp := htlc.BitcoinParamsFrom(alphaParams, sw.StartOfSwap.Unix())
	artifact, err := htlc.BuildBitcoinArtifact(bp, exec.Net)
	require.NoError(t, err)
	require.Equal(t, artifact.Address, fakeBTC.sentAddress().EncodeAddress())
}
