package swap

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/swapnode/swapd/internal/htlc"
)

// LedgerParams is the wire form of one ledger's half of an HtlcParams,
// omitting the secret (only secret_hash crosses the wire, per spec.md §3's
// SwapRequest definition) and using hex strings for binary fields so the
// struct round-trips through JSON without a custom codec, matching the
// teacher's lnwire convention of plain Go types over the wire for
// anything not hitting the binary p2p transport.
type LedgerParams struct {
	Ledger         string `json:"ledger"` // "bitcoin" or "ethereum"
	AssetKind      string `json:"asset_kind"` // "satoshis", "ether", "erc20"
	Satoshis       int64  `json:"satoshis,omitempty"`
	Quantity       string `json:"quantity,omitempty"` // decimal string, wei or token units
	TokenContract  string `json:"token_contract,omitempty"` // hex address, erc20 only
	RedeemIdentity string `json:"redeem_identity,omitempty"` // hex, 20 bytes
	RefundIdentity string `json:"refund_identity,omitempty"` // hex, 20 bytes
	Expiry         int64  `json:"expiry"`
}

// SwapRequest is the proposer's opening message, per spec.md §6: alpha and
// beta params without secrets, the secret_hash, the fixed hash function,
// and the peer ID the proposer expects to respond. Each leg's LedgerParams
// has optional RedeemIdentity/RefundIdentity fields, which a fresh
// proposal may leave empty; spec.md's Accept response is what supplies
// alpha_redeem_identity/beta_refund_identity.
type SwapRequest struct {
	ID          uuid.UUID    `json:"id"`
	Alpha       LedgerParams `json:"alpha"`
	Beta        LedgerParams `json:"beta"`
	SecretHash  string       `json:"secret_hash"` // hex, 32 bytes
	HashFunction string      `json:"hash_function"` // always "SHA-256"
	RolePeerID  string       `json:"role_peer_id"`
}

// Accept is the counterparty's response accepting a SwapRequest, adding the
// two identities the proposer needs to finish constructing both HTLCs.
type Accept struct {
	ID                  uuid.UUID `json:"id"`
	AlphaRedeemIdentity  string    `json:"alpha_redeem_identity"` // hex, 20 bytes
	BetaRefundIdentity   string    `json:"beta_refund_identity"`  // hex, 20 bytes
}

// Decline is the counterparty's rejection of a SwapRequest.
type Decline struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason,omitempty"`
}

// ParamsFromWire decodes a LedgerParams plus the shared secret_hash into an
// htlc.HtlcParams, the form C1's constructors consume. redeemIdentity and
// refundIdentity are each either one this node derives for itself or one
// exchanged via Accept.
func ParamsFromWire(lp LedgerParams, secretHash [32]byte, redeemIdentity, refundIdentity [20]byte) (htlc.HtlcParams, error) {
	var ledger htlc.Ledger
	switch lp.Ledger {
	case "bitcoin":
		ledger = htlc.LedgerBitcoin
	case "ethereum":
		ledger = htlc.LedgerEthereum
	default:
		return htlc.HtlcParams{}, fmt.Errorf("swap: unsupported ledger %q", lp.Ledger)
	}

	asset, err := assetFromWire(lp)
	if err != nil {
		return htlc.HtlcParams{}, err
	}

	return htlc.HtlcParams{
		Ledger:         ledger,
		Asset:          asset,
		RedeemIdentity: redeemIdentity,
		RefundIdentity: refundIdentity,
		Expiry:         lp.Expiry,
		SecretHash:     secretHash,
	}, nil
}

func assetFromWire(lp LedgerParams) (htlc.Asset, error) {
	switch lp.AssetKind {
	case "satoshis":
		return htlc.Asset{Kind: htlc.AssetSatoshis, Satoshis: lp.Satoshis}, nil
	case "ether":
		q, ok := new(big.Int).SetString(lp.Quantity, 10)
		if !ok {
			return htlc.Asset{}, fmt.Errorf("swap: invalid ether quantity %q", lp.Quantity)
		}
		return htlc.Asset{Kind: htlc.AssetEther, Quantity: q}, nil
	case "erc20":
		q, ok := new(big.Int).SetString(lp.Quantity, 10)
		if !ok {
			return htlc.Asset{}, fmt.Errorf("swap: invalid erc20 quantity %q", lp.Quantity)
		}
		if !common.IsHexAddress(lp.TokenContract) {
			return htlc.Asset{}, fmt.Errorf("swap: invalid token_contract %q", lp.TokenContract)
		}
		return htlc.Asset{Kind: htlc.AssetErc20, Quantity: q, TokenContract: common.HexToAddress(lp.TokenContract)}, nil
	default:
		return htlc.Asset{}, fmt.Errorf("swap: unsupported asset kind %q", lp.AssetKind)
	}
}

// secretHashFromHex decodes a hex-encoded 32-byte secret_hash, as carried
// in SwapRequest.SecretHash.
func secretHashFromHex(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("swap: invalid secret_hash hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("swap: secret_hash must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// IdentityFromHex decodes a hex-encoded 20-byte identity (pubkey hash or
// Ethereum address), exported for callers outside this package (the REST
// facade) that need to turn a LedgerParams' RedeemIdentity/RefundIdentity
// into the form ParamsFromWire expects.
func IdentityFromHex(s string) ([20]byte, error) { return identityFromHex(s) }

// identityFromHex decodes a hex-encoded 20-byte identity (pubkey hash or
// Ethereum address).
func identityFromHex(s string) ([20]byte, error) {
	var out [20]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("swap: invalid identity hex: %w", err)
	}
	if len(b) != 20 {
		return out, fmt.Errorf("swap: identity must be 20 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Marshal/Unmarshal helpers keep the JSON tags the single source of truth
// for SwapRequest's wire shape; callers that need framed transport should
// wrap these, not reimplement the field layout.
func (r SwapRequest) Marshal() ([]byte, error) { return json.Marshal(r) }

func UnmarshalSwapRequest(data []byte) (SwapRequest, error) {
	var r SwapRequest
	err := json.Unmarshal(data, &r)
	return r, err
}
