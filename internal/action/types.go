// Package action implements the action engine (C4): given a swap's current
// role, ledger states, and timing, it recommends at most one next action
// and materializes it as a self-contained transaction template. The engine
// never submits a transaction; it only builds the template the coordinator
// hands to the API boundary for signing and broadcast.
package action

import (
	"math/big"

	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
)

// Role is which side of the swap this node is playing.
type Role int

const (
	RoleAlice Role = iota
	RoleBob
)

// LedgerState is the per-ledger lifecycle state the chain watcher's event
// stream drives forward, per spec.md §4.2's Deployed → Funded →
// (Redeemed XOR Refunded) progression.
type LedgerState int

const (
	StateNotDeployed LedgerState = iota
	StateDeployed
	StateFunded
	StateIncorrectlyFunded
	StateRedeemed
	StateRefunded
)

// Terminal reports whether this ledger state ends that ledger's watch.
func (s LedgerState) Terminal() bool {
	switch s {
	case StateRedeemed, StateRefunded, StateIncorrectlyFunded:
		return true
	default:
		return false
	}
}

// Kind tags the action the engine recommends.
type Kind int

const (
	// None means waiting is legal in this non-terminal state.
	None Kind = iota
	FundAlpha
	DeployBeta
	FundBeta
	RedeemBeta
	RedeemAlpha
	RefundAlpha
	RefundBeta
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case FundAlpha:
		return "fund_alpha"
	case DeployBeta:
		return "deploy_beta"
	case FundBeta:
		return "fund_beta"
	case RedeemBeta:
		return "redeem_beta"
	case RedeemAlpha:
		return "redeem_alpha"
	case RefundAlpha:
		return "refund_alpha"
	case RefundBeta:
		return "refund_beta"
	default:
		return "unknown"
	}
}

// Input is the decision table's full argument tuple, per spec.md §4.4:
// (role, communication_state, alpha_state, beta_state, now, alpha_expiry,
// beta_expiry). CommunicationState is folded in as Declined, since it is
// the only pre-funding communication outcome the table needs to react to.
type Input struct {
	Role      Role
	Declined  bool
	AlphaState LedgerState
	BetaState  LedgerState
	Now        int64
	AlphaExpiry int64
	BetaExpiry  int64

	// BetaIsEthereum distinguishes "Deploy β" (Ethereum) from "Fund β"
	// (Bitcoin) for Bob's first move, per the table's row 2.
	BetaIsEthereum bool
}

// PrimedTransaction is the Bitcoin action template: combined with a
// caller-supplied output address and fee rate (already fixed at template
// construction time here, following sweep/txgenerator.go's createSweepTx),
// it produces a signed raw transaction.
type PrimedTransaction struct {
	Inputs        []wire.OutPoint
	OutputAddress string
	Amount        int64 // output value in satoshis, after fee deduction
	FeeRate       int64 // sat/vByte
	LockTime      uint32
	Sequence      uint32
}

// DeployContract is the Ethereum deployment action template.
type DeployContract struct {
	Data     []byte
	Value    *big.Int
	GasLimit uint64
	ChainID  *big.Int
}

// CallContract is the Ethereum call action template. MinBlockTimestamp is
// set on refund calls; the caller must withhold broadcast until the chain's
// block timestamp reaches it.
type CallContract struct {
	To                common.Address
	Data              []byte
	GasLimit          uint64
	ChainID           *big.Int
	MinBlockTimestamp *int64
}

// Decision is the engine's full output: which action, and its template.
// Exactly one of Bitcoin, EthDeploy, or EthCall is populated, matching
// Kind's ledger.
type Decision struct {
	Kind      Kind
	Bitcoin   *PrimedTransaction
	EthDeploy *DeployContract
	EthCall   *CallContract
}
