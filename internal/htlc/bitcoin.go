package htlc

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// BitcoinWitnessScript constructs the HTLC witness script:
//
//	IF
//	    SHA256 <secret_hash> EQUALVERIFY
//	    DUP HASH160 <redeem_pkh>
//	ELSE
//	    <relative_timelock> CHECKSEQUENCEVERIFY DROP
//	    DUP HASH160 <refund_pkh>
//	ENDIF
//	EQUALVERIFY CHECKSIG
//
// Redeeming requires the preimage to secret_hash and a signature under the
// redeem key; refunding requires the spending input's sequence to encode at
// least RelativeTimelock and a signature under the refund key. The output is
// byte-reproducible for a given BitcoinParams.
func BitcoinWitnessScript(p BitcoinParams) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(p.SecretHash[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(p.RedeemPKH[:])
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(p.RelativeTimelock)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(p.RefundPKH[:])
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_CHECKSIG)

	return builder.Script()
}

// witnessScriptHash generates the P2WSH pkScript (OP_0 <sha256(script)>)
// paying to the passed witness script.
func witnessScriptHash(witnessScript []byte) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()

	bldr.AddOp(txscript.OP_0)
	scriptHash := sha256.Sum256(witnessScript)
	bldr.AddData(scriptHash[:])
	return bldr.Script()
}

// BitcoinAddress derives the bech32 P2WSH address paying to witnessScript
// on the given network.
func BitcoinAddress(witnessScript []byte, net *chaincfg.Params) (btcutil.Address, error) {
	witnessProg := sha256.Sum256(witnessScript)
	return btcutil.NewAddressWitnessScriptHash(witnessProg[:], net)
}

// BuildBitcoinArtifact constructs the witness script and P2WSH address for
// a Bitcoin HtlcParams, in the form the coordinator hands to its chain
// watcher and action engine.
func BuildBitcoinArtifact(p BitcoinParams, net *chaincfg.Params) (Artifact, error) {
	script, err := BitcoinWitnessScript(p)
	if err != nil {
		return Artifact{}, fmt.Errorf("build witness script: %w", err)
	}

	addr, err := BitcoinAddress(script, net)
	if err != nil {
		return Artifact{}, fmt.Errorf("derive p2wsh address: %w", err)
	}

	return Artifact{
		Ledger:  LedgerBitcoin,
		Script:  script,
		Address: addr.EncodeAddress(),
	}, nil
}

// BitcoinHtlcOutputScript returns the pkScript (not the witness script) to
// place in the funding transaction's output, i.e. the P2WSH scriptPubKey
// witnessScriptHash derives.
func BitcoinHtlcOutputScript(witnessScript []byte) ([]byte, error) {
	return witnessScriptHash(witnessScript)
}
