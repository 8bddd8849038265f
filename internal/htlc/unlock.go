package htlc

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrWrongSecret is returned when a redeem attempt's secret does not hash
// to the HTLC's secret_hash.
var ErrWrongSecret = errors.New("htlc: secret does not hash to secret_hash")

// ErrWrongKeyPair is returned when a redeem or refund attempt's public key
// does not hash to the expected identity (redeem_pkh or refund_pkh).
var ErrWrongKeyPair = errors.New("htlc: pubkey does not match expected identity")

// SequenceAllowNtimelockNoRBF is the nSequence value lnd's own wire layer
// uses for a final, non-RBF input whose relative-timelock path is not being
// exercised: 0xFFFFFFFE. A Bitcoin redeem takes this branch; it does not
// need to satisfy the refund CHECKSEQUENCEVERIFY clause.
const SequenceAllowNtimelockNoRBF = wire.MaxTxInSequenceNum - 1

// UnlockParameters is the caller-facing result of a Bitcoin unlock builder:
// the witness stack to attach to the spending input, the nSequence value
// that input must carry, and (for refunds) the minimum nLockTime the
// spending transaction must set.
type UnlockParameters struct {
	Witness  wire.TxWitness
	Sequence uint32
	LockTime uint32
}

// BuildBitcoinRedeem constructs the witness satisfying the IF branch of the
// HTLC script: reveal the secret and sign with the redeem keypair. It
// rejects the attempt before any signature is produced unless the secret
// hashes to p.SecretHash and the keypair's pubkey hash matches p.RedeemPKH.
func BuildBitcoinRedeem(witnessScript []byte, p BitcoinParams, key *btcec.PrivateKey,
	secret [32]byte, sweepTx *wire.MsgTx, inputIndex int, outputAmt btcutil.Amount) (UnlockParameters, error) {

	hash := sha256.Sum256(secret[:])
	if hash != p.SecretHash {
		return UnlockParameters{}, ErrWrongSecret
	}

	pub := key.PubKey().SerializeCompressed()
	pkh := btcutil.Hash160(pub)
	if !pkhEqual(pkh, p.RedeemPKH[:]) {
		return UnlockParameters{}, ErrWrongKeyPair
	}

	hashCache := txscript.NewTxSigHashes(sweepTx)
	sig, err := txscript.RawTxInWitnessSignature(
		sweepTx, hashCache, inputIndex, int64(outputAmt), witnessScript,
		txscript.SigHashAll, key,
	)
	if err != nil {
		return UnlockParameters{}, err
	}

	witness := wire.TxWitness{
		sig,
		pub,
		secret[:],
		{1},
		witnessScript,
	}

	return UnlockParameters{
		Witness:  witness,
		Sequence: SequenceAllowNtimelockNoRBF,
		LockTime: 0,
	}, nil
}

// BuildBitcoinRefund constructs the witness satisfying the ELSE branch of
// the HTLC script: no secret, sign with the refund keypair. The caller must
// set the spending transaction's nLockTime to at least p's absolute expiry
// and its input's nSequence to the relative timelock encoding returned here
// for OP_CHECKSEQUENCEVERIFY to pass.
func BuildBitcoinRefund(witnessScript []byte, p BitcoinParams, key *btcec.PrivateKey,
	sweepTx *wire.MsgTx, inputIndex int, outputAmt btcutil.Amount) (UnlockParameters, error) {

	pub := key.PubKey().SerializeCompressed()
	pkh := btcutil.Hash160(pub)
	if !pkhEqual(pkh, p.RefundPKH[:]) {
		return UnlockParameters{}, ErrWrongKeyPair
	}

	hashCache := txscript.NewTxSigHashes(sweepTx)
	sig, err := txscript.RawTxInWitnessSignature(
		sweepTx, hashCache, inputIndex, int64(outputAmt), witnessScript,
		txscript.SigHashAll, key,
	)
	if err != nil {
		return UnlockParameters{}, err
	}

	witness := wire.TxWitness{
		sig,
		pub,
		{0},
		witnessScript,
	}

	return UnlockParameters{
		Witness:  witness,
		Sequence: sequenceFromRelativeTimelock(p.RelativeTimelock),
		LockTime: uint32(p.RelativeTimelock),
	}, nil
}

// SequenceForRelativeTimelock exposes sequenceFromRelativeTimelock so a
// caller building a refund transaction's inputs can set the correct
// nSequence before computing the witness signature over it — the signature
// depends on nSequence already being in place on the unsigned transaction
// (BIP143's hashSequence), so it cannot be filled in only from
// BuildBitcoinRefund's return value after the fact.
func SequenceForRelativeTimelock(blocks int64) uint32 {
	return sequenceFromRelativeTimelock(blocks)
}

func pkhEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sequenceFromRelativeTimelock encodes a relative timelock expressed in
// blocks as an nSequence value per BIP 68 (bit 22 clear selects block
// units; the low 16 bits carry the count).
func sequenceFromRelativeTimelock(blocks int64) uint32 {
	return uint32(blocks) & 0x0000ffff
}
