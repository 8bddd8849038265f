package htlc

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AvgBitcoinBlockInterval is the block-time assumption config.go's own
// defaultSafetyMargin comment already relies on ("assume 10-minute Bitcoin
// blocks"); BitcoinParamsFrom reuses the same constant so the relative
// timelock it derives is consistent with the safety margin the swap was
// accepted under.
const AvgBitcoinBlockInterval = 10 * time.Minute

// RelativeTimelockForExpiry derives the OP_CHECKSEQUENCEVERIFY block count
// from a leg's absolute expiry and the swap's start time, rather than from
// "now": both the chain-watch source (at HTLC construction) and the action
// executor (at redeem/refund time) must derive the identical timelock from
// only the fields the swap record persists (Expiry, StartOfSwap), since
// HtlcParams itself has no RelativeTimelock field to round-trip through
// storage. A timelock of less than one block is nonsensical, so the result
// is floored at 1.
func RelativeTimelockForExpiry(expiry, startOfSwap int64) int64 {
	blocks := (expiry - startOfSwap) / int64(AvgBitcoinBlockInterval/time.Second)
	if blocks < 1 {
		return 1
	}
	return blocks
}

// BitcoinParamsFrom narrows an HtlcParams describing a Bitcoin leg into the
// BitcoinParams the C1 constructors and chain-watch source need. startOfSwap
// is the swap's StartOfSwap field, used only to derive RelativeTimelock.
func BitcoinParamsFrom(p HtlcParams, startOfSwap int64) BitcoinParams {
	return BitcoinParams{
		Amount:           p.Asset.Satoshis,
		RedeemPKH:        p.RedeemIdentity,
		RefundPKH:        p.RefundIdentity,
		SecretHash:       p.SecretHash,
		RelativeTimelock: RelativeTimelockForExpiry(p.Expiry, startOfSwap),
	}
}

// EthereumParamsFrom narrows an HtlcParams describing an Ethereum leg into
// the EthereumParams the C1 constructors and chain-watch source need.
func EthereumParamsFrom(p HtlcParams) EthereumParams {
	return EthereumParams{
		Asset:      p.Asset,
		RedeemAddr: common.BytesToAddress(p.RedeemIdentity[:]),
		RefundAddr: common.BytesToAddress(p.RefundIdentity[:]),
		SecretHash: p.SecretHash,
		Expiry:     p.Expiry,
	}
}
