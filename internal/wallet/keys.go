package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BitcoinKey derives this seed's secp256k1 keypair for signing Bitcoin
// HTLC transactions, following src/ethereum/wallet.rs's Wallet::new
// pattern of treating the seed bytes directly as private key material
// (here via decred's secp256k1 v4, the library underlying btcec/v2's own
// key type).
func (s Seed) BitcoinKey() *btcec.PrivateKey {
	// btcec/v2.PrivateKey is a type alias for secp256k1.PrivateKey, so no
	// conversion is needed between the two.
	return secp256k1.PrivKeyFromBytes(s[:])
}

// BitcoinPKH returns the HASH160 of the compressed public key, the
// identity internal/htlc's BitcoinParams.RedeemPKH/RefundPKH expect.
func (s Seed) BitcoinPKH() [20]byte {
	pub := s.BitcoinKey().PubKey().SerializeCompressed()
	var pkh [20]byte
	copy(pkh[:], btcutil.Hash160(pub))
	return pkh
}

// BitcoinAddress returns the P2WPKH address for this seed's Bitcoin
// keypair, for use as a redeem/refund sweep destination.
func (s Seed) BitcoinAddress(params *chaincfg.Params) (btcutil.Address, error) {
	pkh := s.BitcoinPKH()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkh[:], params)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive bitcoin address: %w", err)
	}
	return addr, nil
}

// EthereumKey derives this seed's ECDSA keypair for signing Ethereum HTLC
// deployments and calls, following src/ethereum/wallet.rs's
// PrivateKey::from_slice(&seed.bytes()) pattern.
func (s Seed) EthereumKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(s[:])
	if err != nil {
		return nil, fmt.Errorf("wallet: derive ethereum key: %w", err)
	}
	return key, nil
}

// EthereumAddress returns the account address for this seed's Ethereum
// keypair.
func (s Seed) EthereumAddress() (common.Address, error) {
	key, err := s.EthereumKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
