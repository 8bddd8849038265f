// Package executor is the concrete API boundary from spec.md §4.5 step 2:
// it receives the action engine's recommendations through swap.ActionHandler,
// reconstructs the matching on-chain template from the swap's persisted
// params (internal/action/templates.go's builders), signs with a per-swap
// derived key (internal/wallet's Seed.SwapSeed), and broadcasts through the
// already-dialed bitcoind/geth RPC clients. Grounded on htlcswitch.go and
// contractcourt's own resolver goroutines, which play the same role for
// lnd's on-chain HTLCs: given a recommendation, build the spend, sign it,
// and hand it to the wallet/chain backend to broadcast.
package executor

import (
	"context"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/secret"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/swaperrors"
	"github.com/swapnode/swapd/internal/wallet"
)

// bitcoinBackend is the slice of *bitcoind.Client's (and hence
// *rpcclient.Client's) surface the executor needs: broadcast a
// wallet-funded payment and a raw signed transaction. Narrowed to an
// interface the way breacharbiter.go/server.go depend on
// lnwallet.BlockChainIO rather than a concrete chain client, so tests can
// supply a stand-in without a live bitcoind.
type bitcoinBackend interface {
	SendToAddress(address btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error)
	SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
}

// ethereumBackend is the slice of *geth.Client's surface the executor
// needs to build, sign, and broadcast a transaction.
type ethereumBackend interface {
	ChainIDValue() *big.Int
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	LatestHeader(ctx context.Context) (*ethtypes.Header, error)
}

// Executor implements swap.ActionHandler against a live Bitcoin and
// Ethereum backend.
type Executor struct {
	Coordinator *swap.Coordinator
	Bitcoin     bitcoinBackend
	Ethereum    ethereumBackend
	Net         *chaincfg.Params
	MasterSeed  wallet.Seed
	Secrets     *secret.Registry
	FeeRate     int64 // sat/vByte applied to every Bitcoin template
	Log         btclog.Logger
}

// Submit implements swap.ActionHandler. It fetches the swap's current
// snapshot (the coordinator never populates Decision's templates itself,
// per coordinator.go's evaluateAndAct — only Kind is meaningful on entry),
// rebuilds the right template, signs, and broadcasts. Returning (false, nil)
// is a legal abstention (e.g. an Ether beta leg's redundant FundBeta, see
// fundBeta), not a failure.
func (e *Executor) Submit(ctx context.Context, swapID uuid.UUID, decision action.Decision) (bool, error) {
	sw, err := e.Coordinator.Snapshot(ctx, swapID)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	key := e.MasterSeed.SwapSeed(swapID)

	switch decision.Kind {
	case action.FundAlpha:
		return e.fundLeg(ctx, &sw, key, true)
	case action.DeployBeta:
		return e.deployBeta(ctx, &sw, key)
	case action.FundBeta:
		return e.fundBeta(ctx, &sw, key)
	case action.RedeemBeta:
		return e.redeemLeg(ctx, &sw, key, false)
	case action.RedeemAlpha:
		return e.redeemLeg(ctx, &sw, key, true)
	case action.RefundAlpha:
		return e.refundLeg(ctx, &sw, key, true)
	case action.RefundBeta:
		return e.refundLeg(ctx, &sw, key, false)
	default:
		return false, swaperrors.Newf(swaperrors.Internal, "executor: unrecognized action kind %s", decision.Kind)
	}
}

func (e *Executor) log() btclog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return btclog.Disabled
}

func (e *Executor) errf(kind swaperrors.Kind, format string, args ...interface{}) error {
	return swaperrors.Newf(kind, format, args...)
}
