// Package swap implements the swap coordinator (C5): per spec.md §4.5, it
// owns a single swap's record, spawns the alpha and beta chain watchers,
// re-evaluates the action engine after every ledger-state update, and
// computes the swap's terminal SwapStatus once both ledgers settle.
// Grounded on klingdex's internal/swap Coordinator (types.go, cross_chain.go,
// htlc.go): a map of in-flight swaps behind a single owner, matched here to
// peer.go's goroutine-per-connection model instead of klingdex's
// sync.RWMutex-guarded map, per spec.md §5's requirement that the
// (alpha_state, beta_state) pair fed to C4 be read as a consistent snapshot
// — one goroutine per swap owns its record and watchers report to it over
// channels rather than taking a lock.
package swap

import (
	"time"

	"github.com/google/uuid"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/htlc"
)

// Status is the swap's outcome, per spec.md §4.5 step 5.
type Status int

const (
	// StatusPending means one or both ledgers have not yet reached a
	// terminal state.
	StatusPending Status = iota
	StatusNotSwapped
	StatusSwapped
	StatusInternalFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusNotSwapped:
		return "not_swapped"
	case StatusSwapped:
		return "swapped"
	case StatusInternalFailure:
		return "internal_failure"
	default:
		return "unknown"
	}
}

// CommunicationState tracks the peer negotiation outcome, folded into
// action.Input.Declined for C4 but kept as its own field here since a swap
// can be Proposed before it is ever Accepted or Declined.
type CommunicationState int

const (
	CommunicationProposed CommunicationState = iota
	CommunicationAccepted
	CommunicationDeclined
)

// LedgerRecord is the coordinator's view of one ledger's progress: the
// action-engine state plus whatever chainwatch.SwapEvent last produced it,
// so RecordLedgerState calls to the store always have a Location/Amount to
// persist alongside the bare state.
type LedgerRecord struct {
	State    action.LedgerState
	Location string
	Amount   int64
}

// Swap is the coordinator's full in-memory record for one swap
// negotiation, per spec.md §3's Swap type.
type Swap struct {
	ID   uuid.UUID
	Role action.Role

	AlphaParams htlc.HtlcParams
	BetaParams  htlc.HtlcParams

	AlphaExpiry int64
	BetaExpiry  int64

	Communication CommunicationState

	Alpha LedgerRecord
	Beta  LedgerRecord

	SecretHash [32]byte

	StartOfSwap time.Time
}

// betaIsEthereum reports whether the beta ledger is Ethereum, the one bit
// action.Input needs beyond the two LedgerStates to pick DeployBeta vs
// FundBeta on Bob's first move (spec.md §4.4 row 2).
func (s *Swap) betaIsEthereum() bool {
	return s.BetaParams.Ledger == htlc.LedgerEthereum
}

// actionInput builds the decision table's argument tuple from the current
// record, per spec.md §4.4.
func (s *Swap) actionInput(now time.Time) action.Input {
	return action.Input{
		Role:           s.Role,
		Declined:       s.Communication == CommunicationDeclined,
		AlphaState:     s.Alpha.State,
		BetaState:      s.Beta.State,
		Now:            now.Unix(),
		AlphaExpiry:    s.AlphaExpiry,
		BetaExpiry:     s.BetaExpiry,
		BetaIsEthereum: s.betaIsEthereum(),
	}
}

// terminalStatus computes spec.md §4.5 step 5's final SwapStatus. It must
// only be called once both Alpha.State and Beta.State are Terminal(); the
// coordinator enforces that gate before calling it.
func terminalStatus(comm CommunicationState, alpha, beta action.LedgerState) Status {
	if comm == CommunicationDeclined {
		return StatusNotSwapped
	}
	if alpha == action.StateRefunded || beta == action.StateRefunded {
		return StatusNotSwapped
	}
	if alpha == action.StateIncorrectlyFunded || beta == action.StateIncorrectlyFunded {
		return StatusNotSwapped
	}
	if comm == CommunicationAccepted && alpha == action.StateRedeemed && beta == action.StateRedeemed {
		return StatusSwapped
	}
	return StatusInternalFailure
}

// fromWatchEvent folds a chainwatch.SwapEvent into the action-engine
// LedgerState it represents.
func fromWatchEvent(kind chainwatch.EventKind) action.LedgerState {
	switch kind {
	case chainwatch.EventDeployed:
		return action.StateDeployed
	case chainwatch.EventFunded:
		return action.StateFunded
	case chainwatch.EventIncorrectlyFunded:
		return action.StateIncorrectlyFunded
	case chainwatch.EventRedeemed:
		return action.StateRedeemed
	case chainwatch.EventRefunded:
		return action.StateRefunded
	default:
		return action.StateNotDeployed
	}
}
