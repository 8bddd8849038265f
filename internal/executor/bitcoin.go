package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/swaperrors"
	"github.com/swapnode/swapd/internal/wallet"
)

// fundBitcoin executes a single-step Bitcoin fund (FundAlpha, or FundBeta
// when beta is Bitcoin): the HTLC's P2WSH address is funded directly
// through bitcoind's own wallet RPC, which performs coin selection, change,
// and signing — per DESIGN.md's dropped-dependency note on btcwallet's
// walletdb/wtxmgr, the node's own bitcoind already owns a wallet capable of
// this, so swapd does not reimplement UTXO selection.
func (e *Executor) fundBitcoin(sw *swap.Swap, key wallet.Seed, params htlc.HtlcParams) (bool, error) {
	bp := htlc.BitcoinParamsFrom(params, sw.StartOfSwap.Unix())
	artifact, err := htlc.BuildBitcoinArtifact(bp, e.Net)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	addr, err := btcutil.DecodeAddress(artifact.Address, e.Net)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	_, err = e.Bitcoin.SendToAddress(addr, btcutil.Amount(bp.Amount))
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	return true, nil
}

// redeemBitcoin and refundBitcoin both spend the single HTLC outpoint the
// chain watcher last reported for this leg (record.Location, "txid:vout"
// per chainwatch.SwapEvent's doc comment) back to this node's own wallet
// address, choosing the IF or ELSE witness branch.
func (e *Executor) redeemBitcoin(sw *swap.Swap, key wallet.Seed, params htlc.HtlcParams,
	record swap.LedgerRecord, secret [32]byte) (bool, error) {

	bp := htlc.BitcoinParamsFrom(params, sw.StartOfSwap.Unix())
	witnessScript, err := htlc.BitcoinWitnessScript(bp)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	outpoint, amount, err := spentOutpoint(record)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	ownAddr, err := key.BitcoinAddress(e.Net)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	tx, sweepAmount, err := e.buildSweep(outpoint, ownAddr, amount)
	if err != nil {
		return false, err
	}
	// The redeem branch never needs the refund CHECKSEQUENCEVERIFY clause,
	// so nSequence is the fixed non-RBF value and nLockTime is unused; both
	// must be set before signing since BIP143's hashSequence covers them.
	tx.TxIn[0].Sequence = htlc.SequenceAllowNtimelockNoRBF
	tx.LockTime = 0

	unlock, err := htlc.BuildBitcoinRedeem(witnessScript, bp, key.BitcoinKey(), secret, tx, 0, btcutil.Amount(amount))
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	tx.TxIn[0].Witness = unlock.Witness

	if err := e.broadcast(tx); err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	e.log().Infof("swap %s: broadcast bitcoin redeem of %s, sweeping %d sat", sw.ID, outpoint, sweepAmount)
	return true, nil
}

func (e *Executor) refundBitcoin(sw *swap.Swap, key wallet.Seed, params htlc.HtlcParams,
	record swap.LedgerRecord) (bool, error) {

	bp := htlc.BitcoinParamsFrom(params, sw.StartOfSwap.Unix())
	witnessScript, err := htlc.BitcoinWitnessScript(bp)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	outpoint, amount, err := spentOutpoint(record)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	ownAddr, err := key.BitcoinAddress(e.Net)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	tx, sweepAmount, err := e.buildSweep(outpoint, ownAddr, amount)
	if err != nil {
		return false, err
	}
	// Both nSequence and nLockTime gate the refund branch's
	// CHECKSEQUENCEVERIFY and must be set before signing, for the same
	// BIP143 hashSequence reason as the redeem branch above.
	tx.TxIn[0].Sequence = htlc.SequenceForRelativeTimelock(bp.RelativeTimelock)
	tx.LockTime = uint32(bp.RelativeTimelock)

	unlock, err := htlc.BuildBitcoinRefund(witnessScript, bp, key.BitcoinKey(), tx, 0, btcutil.Amount(amount))
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	tx.TxIn[0].Witness = unlock.Witness

	if err := e.broadcast(tx); err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	e.log().Infof("swap %s: broadcast bitcoin refund of %s, sweeping %d sat", sw.ID, outpoint, sweepAmount)
	return true, nil
}

// buildSweep constructs the unsigned spend of outpoint to ownAddr, paying
// the HTLC amount less a flat fee estimate, since a redeem/refund sweep
// pays its own fee out of the HTLC amount rather than from separate wallet
// inputs. Only a non-positive result is rejected; no dust check is applied
// here. The transaction is version 2, which CHECKSEQUENCEVERIFY requires
// for the refund branch to pass.
func (e *Executor) buildSweep(outpoint wire.OutPoint, ownAddr btcutil.Address, amount int64) (*wire.MsgTx, int64, error) {
	pkScript, err := txscript.PayToAddrScript(ownAddr)
	if err != nil {
		return nil, 0, swaperrors.Wrap(swaperrors.Internal, err)
	}

	const estimatedVBytes = 200 // redeem/refund witness spend, generous estimate
	fee := e.FeeRate * estimatedVBytes
	sweepAmount := amount - fee
	if sweepAmount <= 0 {
		return nil, 0, swaperrors.New(swaperrors.Execution, "executor: htlc amount too small to cover redeem/refund fee")
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})
	tx.AddTxOut(&wire.TxOut{Value: sweepAmount, PkScript: pkScript})

	return tx, sweepAmount, nil
}

func (e *Executor) broadcast(tx *wire.MsgTx) error {
	_, err := e.Bitcoin.SendRawTransaction(tx, false)
	return err
}

// spentOutpoint parses record.Location ("txid:vout") back into a
// wire.OutPoint, per chainwatch/bitcoin's matchDeployAndFund Location
// encoding.
func spentOutpoint(record swap.LedgerRecord) (wire.OutPoint, int64, error) {
	parts := strings.SplitN(record.Location, ":", 2)
	if len(parts) != 2 {
		return wire.OutPoint{}, 0, fmt.Errorf("executor: malformed bitcoin location %q", record.Location)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return wire.OutPoint{}, 0, fmt.Errorf("executor: invalid txid in location %q: %w", record.Location, err)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wire.OutPoint{}, 0, fmt.Errorf("executor: invalid vout in location %q: %w", record.Location, err)
	}
	return wire.OutPoint{Hash: *hash, Index: uint32(vout)}, record.Amount, nil
}
