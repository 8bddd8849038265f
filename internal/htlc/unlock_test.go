package htlc

import (
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestBitcoinRedeemSpendValidation covers the two spending paths of the
// HTLC witness script: redeeming with the correct secret and redeem
// keypair, and refunding with the refund keypair once the relative
// timelock has elapsed.
func TestBitcoinRedeemSpendValidation(t *testing.T) {
	t.Parallel()

	redeemKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	refundKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var secret [32]byte
	_, err = rand.Read(secret[:])
	require.NoError(t, err)
	secretHash := sha256.Sum256(secret[:])

	p := BitcoinParams{
		Amount:           100_000,
		RedeemPKH:        hash160Of(redeemKey),
		RefundPKH:        hash160Of(refundKey),
		SecretHash:       secretHash,
		RelativeTimelock: 10,
	}

	witnessScript, err := BitcoinWitnessScript(p)
	require.NoError(t, err)

	pkScript, err := witnessScriptHash(witnessScript)
	require.NoError(t, err)

	fundingTxID, err := chainhash.NewHash(secret[:])
	require.NoError(t, err)
	fundingOutpoint := wire.OutPoint{Hash: *fundingTxID, Index: 0}

	newSpendTx := func(sequence uint32) *wire.MsgTx {
		tx := wire.NewMsgTx(2)
		txIn := wire.NewTxIn(&fundingOutpoint, nil, nil)
		txIn.Sequence = sequence
		tx.AddTxIn(txIn)
		tx.AddTxOut(wire.NewTxOut(90_000, pkScript))
		return tx
	}

	t.Run("redeem with correct secret", func(t *testing.T) {
		spendTx := newSpendTx(SequenceAllowNtimelockNoRBF)

		unlock, err := BuildBitcoinRedeem(
			witnessScript, p, redeemKey, secret, spendTx, 0,
			btcutil.Amount(p.Amount),
		)
		require.NoError(t, err)
		spendTx.TxIn[0].Witness = unlock.Witness

		hashCache := txscript.NewTxSigHashes(spendTx)
		vm, err := txscript.NewEngine(
			pkScript, spendTx, 0, txscript.StandardVerifyFlags,
			nil, hashCache, p.Amount,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())
	})

	t.Run("redeem rejects wrong secret", func(t *testing.T) {
		spendTx := newSpendTx(SequenceAllowNtimelockNoRBF)
		var wrongSecret [32]byte
		copy(wrongSecret[:], "not-the-right-preimage-at-all!!")

		_, err := BuildBitcoinRedeem(
			witnessScript, p, redeemKey, wrongSecret, spendTx, 0,
			btcutil.Amount(p.Amount),
		)
		require.ErrorIs(t, err, ErrWrongSecret)
	})

	t.Run("redeem rejects wrong keypair", func(t *testing.T) {
		spendTx := newSpendTx(SequenceAllowNtimelockNoRBF)

		_, err := BuildBitcoinRedeem(
			witnessScript, p, refundKey, secret, spendTx, 0,
			btcutil.Amount(p.Amount),
		)
		require.ErrorIs(t, err, ErrWrongKeyPair)
	})

	t.Run("refund with correct keypair", func(t *testing.T) {
		spendTx := newSpendTx(sequenceFromRelativeTimelock(p.RelativeTimelock))

		unlock, err := BuildBitcoinRefund(
			witnessScript, p, refundKey, spendTx, 0,
			btcutil.Amount(p.Amount),
		)
		require.NoError(t, err)
		spendTx.TxIn[0].Witness = unlock.Witness

		hashCache := txscript.NewTxSigHashes(spendTx)
		vm, err := txscript.NewEngine(
			pkScript, spendTx, 0, txscript.StandardVerifyFlags,
			nil, hashCache, p.Amount,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())
	})

	t.Run("refund rejects wrong keypair", func(t *testing.T) {
		spendTx := newSpendTx(sequenceFromRelativeTimelock(p.RelativeTimelock))

		_, err := BuildBitcoinRefund(
			witnessScript, p, redeemKey, spendTx, 0,
			btcutil.Amount(p.Amount),
		)
		require.ErrorIs(t, err, ErrWrongKeyPair)
	})
}

func hash160Of(key *btcec.PrivateKey) [20]byte {
	var out [20]byte
	copy(out[:], btcutil.Hash160(key.PubKey().SerializeCompressed()))
	return out
}
