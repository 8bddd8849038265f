package htlc

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestBitcoinWitnessScriptVector reproduces Scenario 1 (happy Bitcoin
// redeem) verbatim: a fixed secret_hash, redeem/refund pubkey hashes and a
// relative timelock must serialize to an exact witness script and resolve
// to an exact P2WSH address on regtest.
func TestBitcoinWitnessScriptVector(t *testing.T) {
	secretHash := mustHash32(t, "51a488e06e9c69c555b8ad5e2c4629bb3135b96accd1f23451af75e06d3aee9c")
	redeemPKH := mustHash20(t, "c021f17be99c6adfbcba5d38ee0d292c0399d2f5")
	refundPKH := mustHash20(t, "1925a274ac004373bb5429553bdb55c40e57b124")

	p := BitcoinParams{
		SecretHash:       secretHash,
		RedeemPKH:        redeemPKH,
		RefundPKH:        refundPKH,
		RelativeTimelock: 900,
	}

	script, err := BitcoinWitnessScript(p)
	require.NoError(t, err)

	wantScript, err := hex.DecodeString("63a82051a488e06e9c69c555b8ad5e2c4629bb3135b96accd1f23451af75e06d3aee9c8876a914c021f17be99c6adfbcba5d38ee0d292c0399d2f567028403b27576a9141925a274ac004373bb5429553bdb55c40e57b1246888ac")
	require.NoError(t, err)
	require.Equal(t, wantScript, script)

	addr, err := BitcoinAddress(script, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.Equal(t, "bcrt1qs2aderg3whgu0m8uadn6dwxjf7j3wx97kk2qqtrum89pmfcxknhsf89pj0", addr.EncodeAddress())
}

// TestBitcoinWitnessScriptDeterministic asserts address determinism: the
// same BitcoinParams always produce the same artifact across calls.
func TestBitcoinWitnessScriptDeterministic(t *testing.T) {
	p := BitcoinParams{
		SecretHash:       mustHash32(t, "51a488e06e9c69c555b8ad5e2c4629bb3135b96accd1f23451af75e06d3aee9c"),
		RedeemPKH:        mustHash20(t, "c021f17be99c6adfbcba5d38ee0d292c0399d2f5"),
		RefundPKH:        mustHash20(t, "1925a274ac004373bb5429553bdb55c40e57b124"),
		RelativeTimelock: 900,
	}

	a1, err := BuildBitcoinArtifact(p, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	a2, err := BuildBitcoinArtifact(p, &chaincfg.RegressionNetParams)
	require.NoError(t, err)

	require.Equal(t, a1.Script, a2.Script)
	require.Equal(t, a1.Address, a2.Address)
}

func mustHash32(t *testing.T, s string) [32]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 32)
	var out [32]byte
	copy(out[:], b)
	return out
}

func mustHash20(t *testing.T, s string) [20]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 20)
	var out [20]byte
	copy(out[:], b)
	return out
}
