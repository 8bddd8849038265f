// Package chainwatch implements the chain watcher (C2): for a given ledger
// and HtlcParams, it produces the ordered event stream
// Deployed → Funded → (Redeemed XOR Refunded), restartable from
// start_of_swap after a crash. The block-traversal protocol in this file is
// shared across ledgers; internal/chainwatch/bitcoin and
// internal/chainwatch/ethereum each supply a Source that knows how to fetch
// blocks and match events for their chain.
package chainwatch

import (
	"context"
	"time"

	"github.com/swapnode/swapd/internal/swaperrors"
)

// EventKind tags one of the five outcomes the watcher can emit, per
// spec.md §4.2.
type EventKind int

const (
	EventDeployed EventKind = iota
	EventFunded
	EventIncorrectlyFunded
	EventRedeemed
	EventRefunded
)

func (k EventKind) String() string {
	switch k {
	case EventDeployed:
		return "deployed"
	case EventFunded:
		return "funded"
	case EventIncorrectlyFunded:
		return "incorrectly_funded"
	case EventRedeemed:
		return "redeemed"
	case EventRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// terminal reports whether an event ends the watch (only one of Redeemed
// or Refunded is ever emitted for a given HTLC instance; the other future
// is cancelled once the first resolves).
func (k EventKind) terminal() bool {
	return k == EventRedeemed || k == EventRefunded
}

// SwapEvent is one observation in the event stream the coordinator
// consumes. Location is a ledger-specific opaque locator: for Bitcoin,
// "txid:vout" of the HTLC output on Deployed/Funded/IncorrectlyFunded and
// the spending transaction's txid on Redeemed/Refunded; for Ethereum, the
// hex contract address.
type SwapEvent struct {
	Kind     EventKind
	Location string
	Amount   int64 // satoshis, wei, or token units observed; meaningful for Funded/IncorrectlyFunded
	Secret   *[32]byte
	BlockTime time.Time
}

// Block is the minimal per-block data the shared traversal protocol needs.
// Bitcoin and Ethereum sources adapt their native block headers to this
// shape.
type Block struct {
	Hash       string
	ParentHash string
	Time       time.Time
}

// Source is what a ledger-specific watcher implementation supplies: block
// fetching, and event matching against a single block's transactions.
type Source interface {
	// LatestBlock returns the chain's current tip.
	LatestBlock(ctx context.Context) (Block, error)

	// BlockByHash fetches a specific block, used to walk back via
	// ParentHash.
	BlockByHash(ctx context.Context, hash string) (Block, error)

	// EventsInBlock returns every SwapEvent this block produces for the
	// watched HTLC, in on-chain order. It is called once per block the
	// traversal visits, including blocks visited more than once across
	// restarts — Watch itself is responsible for not re-emitting an
	// event the coordinator has already consumed via seen_blocks
	// bookkeeping at the block level, not the event level.
	EventsInBlock(ctx context.Context, b Block) ([]SwapEvent, error)

	// Tick is the ledger's polling interval (§4.2: "Bitcoin ≈ polling
	// interval of seconds; Ethereum ≈ faster").
	Tick() time.Duration
}

// Watch runs the shared block-traversal protocol against src, starting
// historical scanning at startOfSwap, and returns a channel of SwapEvents.
// The channel is closed once a terminal event (Redeemed or Refunded) is
// emitted or when ctx is cancelled. Chain errors never close it: a failed
// LatestBlock is retried every tick at the same interval, with no backoff
// and no limit on the number of attempts.
//
// The protocol (spec.md §4.2):
//  1. Maintain a set seen_blocks of block hashes.
//  2. Loop: fetch latest block B; if B.hash ∈ seen_blocks, sleep one tick
//     and continue.
//  3. Yield B to the matcher; insert B.hash into seen_blocks.
//  4. Walk back via parent_hash until a block predates start_of_swap or
//     its hash is already in seen_blocks, yielding each block along the
//     way.
//  5. Sleep one tick and repeat.
//
// Restartability follows directly: seen_blocks is rebuilt from nothing on
// each call, so the same (params, startOfSwap) pair always re-walks back to
// startOfSwap and re-derives the same event sequence from the chain itself.
func Watch(ctx context.Context, src Source, startOfSwap time.Time) <-chan SwapEvent {
	out := make(chan SwapEvent, 16)

	go func() {
		defer close(out)

		seen := make(map[string]struct{})
		tick := src.Tick()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			tip, err := src.LatestBlock(ctx)
			if err != nil {
				// Every chain error, transient or not, is
				// handled the same way: wait out one tick
				// and try again.
				if !sleep(ctx, tick) {
					return
				}
				continue
			}

			if _, ok := seen[tip.Hash]; ok {
				if !sleep(ctx, tick) {
					return
				}
				continue
			}

			if done := emitAndWalkBack(ctx, src, tip, startOfSwap, seen, out); done {
				return
			}

			if !sleep(ctx, tick) {
				return
			}
		}
	}()

	return out
}

// emitAndWalkBack walks back from tip via ParentHash until a block
// predates startOfSwap or has already been seen, then emits every visited
// block's events oldest-first, so same-ledger events reach the coordinator
// strictly in on-chain order even though the walk itself runs newest-first.
// It marks each visited block as seen and reports whether a terminal event
// was emitted.
func emitAndWalkBack(ctx context.Context, src Source, tip Block, startOfSwap time.Time,
	seen map[string]struct{}, out chan<- SwapEvent) (terminalReached bool) {

	var chain []Block

	block := tip
	for {
		chain = append(chain, block)
		seen[block.Hash] = struct{}{}

		if block.Time.Before(startOfSwap) {
			break
		}
		if block.ParentHash == "" {
			break
		}
		if _, ok := seen[block.ParentHash]; ok {
			break
		}

		parent, err := src.BlockByHash(ctx, block.ParentHash)
		if err != nil {
			// A missing parent indicates either a pruned node or
			// a node bug; stop walking back for this iteration
			// and let the outer loop retry from the tip later.
			_ = swaperrors.Wrap(swaperrors.Chain, err)
			break
		}
		block = parent
	}

	for i := len(chain) - 1; i >= 0; i-- {
		events, err := src.EventsInBlock(ctx, chain[i])
		if err != nil {
			continue
		}
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return true
			}
			if ev.Kind.terminal() {
				terminalReached = true
			}
		}
		if terminalReached {
			return true
		}
	}

	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
