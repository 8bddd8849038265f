package bitcoin

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/secret"
)

func newTestSource(t *testing.T, amount int64) (*Source, htlc.BitcoinParams) {
	t.Helper()

	s, secretHash, err := secret.Generate()
	require.NoError(t, err)
	_ = s

	p := htlc.BitcoinParams{
		Amount:           amount,
		SecretHash:       secretHash,
		RelativeTimelock: 900,
	}

	witnessScript, err := htlc.BitcoinWitnessScript(p)
	require.NoError(t, err)
	pkScript, err := htlc.BitcoinHtlcOutputScript(witnessScript)
	require.NoError(t, err)

	return &Source{
		params:        p,
		witnessScript: witnessScript,
		pkScript:      pkScript,
		tick:          time.Second,
	}, p
}

func TestMatchDeployAndFund(t *testing.T) {
	src, p := newTestSource(t, 100_000)

	tx := wire.NewMsgTx(2)
	tx.AddTxOut(wire.NewTxOut(p.Amount, src.pkScript))

	events := src.matchDeployAndFund(tx, time.Unix(1000, 0))
	require.Len(t, events, 2)
	require.Equal(t, chainwatch.EventDeployed, events[0].Kind)
	require.Equal(t, chainwatch.EventFunded, events[1].Kind)
	require.NotNil(t, src.outpoint)
}

func TestMatchDeployAndFundWrongAmount(t *testing.T) {
	src, p := newTestSource(t, 100_000)

	tx := wire.NewMsgTx(2)
	tx.AddTxOut(wire.NewTxOut(p.Amount-1, src.pkScript))

	events := src.matchDeployAndFund(tx, time.Unix(1000, 0))
	require.Len(t, events, 2)
	require.Equal(t, chainwatch.EventDeployed, events[0].Kind)
	require.Equal(t, chainwatch.EventIncorrectlyFunded, events[1].Kind)
}

func TestMatchSpendRedeemed(t *testing.T) {
	src, p := newTestSource(t, 100_000)

	var txidSeed [32]byte
	copy(txidSeed[:], "deployment-transaction-32-bytes")
	fundingTxID, err := chainhash.NewHash(txidSeed[:])
	require.NoError(t, err)
	src.outpoint = &wire.OutPoint{Hash: *fundingTxID, Index: 0}

	secretVal, secretHash, err := secret.Generate()
	require.NoError(t, err)
	p.SecretHash = secretHash
	src.params = p

	spendTx := wire.NewMsgTx(2)
	txIn := wire.NewTxIn(src.outpoint, nil, nil)
	txIn.Witness = wire.TxWitness{
		[]byte("sig"), []byte("pubkey"), secretVal[:], {1}, src.witnessScript,
	}
	spendTx.AddTxIn(txIn)

	events := src.matchSpend(spendTx, time.Unix(2000, 0))
	require.Len(t, events, 1)
	require.Equal(t, chainwatch.EventRedeemed, events[0].Kind)
	require.Equal(t, secretVal, *events[0].Secret)
}

func TestMatchSpendRefunded(t *testing.T) {
	src, _ := newTestSource(t, 100_000)

	var txidSeed [32]byte
	copy(txidSeed[:], "another-deployment-tx-32-bytes!")
	fundingTxID, err := chainhash.NewHash(txidSeed[:])
	require.NoError(t, err)
	src.outpoint = &wire.OutPoint{Hash: *fundingTxID, Index: 0}

	spendTx := wire.NewMsgTx(2)
	txIn := wire.NewTxIn(src.outpoint, nil, nil)
	txIn.Witness = wire.TxWitness{
		[]byte("sig"), []byte("pubkey"), {0}, src.witnessScript,
	}
	spendTx.AddTxIn(txIn)

	events := src.matchSpend(spendTx, time.Unix(2000, 0))
	require.Len(t, events, 1)
	require.Equal(t, chainwatch.EventRefunded, events[0].Kind)
}
