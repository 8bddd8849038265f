// Package htlc implements the HTLC constructors (C1): pure functions that
// derive byte-reproducible on-chain artifacts (Bitcoin witness scripts and
// addresses, Ethereum deployment bytecode and contract addresses) from a
// parameter tuple, plus the unlock builders that spend them.
package htlc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger identifies which chain an HtlcParams describes.
type Ledger int

const (
	LedgerBitcoin Ledger = iota
	LedgerEthereum
)

func (l Ledger) String() string {
	switch l {
	case LedgerBitcoin:
		return "bitcoin"
	case LedgerEthereum:
		return "ethereum"
	default:
		return "unknown"
	}
}

// AssetKind tags the asset carried by one leg of a swap.
type AssetKind int

const (
	// AssetSatoshis is a plain Bitcoin amount.
	AssetSatoshis AssetKind = iota
	// AssetEther is a plain ether amount, denominated in wei.
	AssetEther
	// AssetErc20 is an ERC20 token amount at a given token contract.
	AssetErc20
)

// Asset is a tagged variant over the three supported (ledger, asset)
// combinations. Only the fields relevant to Kind are populated.
type Asset struct {
	Kind AssetKind

	// Satoshis is valid when Kind == AssetSatoshis.
	Satoshis int64

	// Quantity is valid when Kind == AssetEther (wei) or AssetErc20
	// (token units).
	Quantity *big.Int

	// TokenContract is valid when Kind == AssetErc20.
	TokenContract common.Address
}

// HtlcParams is the parameter tuple from which C1 derives a deterministic
// on-chain artifact. Parameters are immutable for the lifetime of a swap;
// any mutation after construction voids the swap per spec.
type HtlcParams struct {
	Ledger Ledger
	Asset  Asset

	// RedeemIdentity and RefundIdentity are 20-byte identities: a pubkey
	// hash for Bitcoin, an address for Ethereum.
	RedeemIdentity [20]byte
	RefundIdentity [20]byte

	// Expiry is the absolute unix timestamp after which the refund path
	// becomes available, for both ledgers, per spec.md's data model. The
	// Bitcoin constructor additionally requires a relative timelock (see
	// BitcoinParams.RelativeTimelock) used for OP_CHECKSEQUENCEVERIFY,
	// since the wire-level test vectors gate refund on a relative
	// sequence number rather than an absolute nLockTime comparison
	// inside the script itself.
	Expiry int64

	SecretHash [32]byte
}

// BitcoinParams narrows an HtlcParams to the fields the Bitcoin constructor
// needs, replacing the unix-timestamp Expiry with the relative timelock
// (in blocks) used by OP_CHECKSEQUENCEVERIFY. The spending transaction's
// nLockTime is set separately by the caller to the absolute Expiry.
type BitcoinParams struct {
	Amount         int64
	RedeemPKH      [20]byte
	RefundPKH      [20]byte
	SecretHash     [32]byte
	RelativeTimelock int64
}

// EthereumParams narrows an HtlcParams to the fields the Ethereum
// constructor needs.
type EthereumParams struct {
	Asset       Asset
	RedeemAddr  common.Address
	RefundAddr  common.Address
	SecretHash  [32]byte
	Expiry      int64
}

// Artifact is the byte-reproducible output of a constructor: the on-chain
// script or deployment bytecode, plus the address it resolves to.
type Artifact struct {
	Ledger  Ledger
	Script  []byte // Bitcoin witness script, or Ethereum deployment bytecode
	Address string
}
