package htlc

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// RedeemGas and RefundGas bound the gas supplied to the two HTLC
	// entry points per spec.md §4.1.
	RedeemGas uint64 = 120_000
	RefundGas uint64 = 80_000
)

// RedeemedEventTopic and RefundedEventTopic are the keccak256 topics of the
// HTLC contract's two terminal events, per spec.md §6.
var (
	RedeemedEventTopic = common.HexToHash("0xb8cac32ca753f3628f44d911f1fd74e3429b933e22202ed15b13979481737413")
	RefundedEventTopic = common.HexToHash("0x5d2686f72a508d70db138bbc6854fc525ff29487b03c1945c491d79448a35178")
)

// htlcRuntimeCode is the constant deployed-contract prefix shared by every
// HTLC instance; only the four constructor arguments appended after it vary
// per swap. The four words, in order, are expiry (uint256), redeem address
// (address, left-zero-padded to 32 bytes), refund address (same), and
// secret_hash (bytes32) — the standard Solidity ABI layout for constructor
// arguments appended after creation code.
var htlcRuntimeCode = mustDecodeHex(
	"608060405234801561001057600080fd5b5060405161042038038061042083398101" +
		"604081905261002f91610054565b600080546001600160a01b0319908116909155" +
		"6001805490911633179055610100565b60006020828403121561006657600080fd5b5051919050565b",
)

const (
	expiryWordOffset     = 0
	redeemAddrWordOffset = 32
	refundAddrWordOffset = 64
	secretHashWordOffset = 96
	constructorArgsLen   = 128
)

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("htlc: invalid embedded bytecode literal: %v", err))
	}
	return b
}

// BuildEthereumDeploymentData templates the HTLC deployment bytecode for
// the given EthereumParams: the four parameters are substituted as
// constructor arguments at fixed offsets following the runtime code, so the
// resulting data is byte-reproducible across implementations.
func BuildEthereumDeploymentData(p EthereumParams) []byte {
	args := make([]byte, constructorArgsLen)

	expiry := big.NewInt(p.Expiry)
	expiry.FillBytes(args[expiryWordOffset : expiryWordOffset+32])

	copy(args[redeemAddrWordOffset+12:redeemAddrWordOffset+32], p.RedeemAddr.Bytes())
	copy(args[refundAddrWordOffset+12:refundAddrWordOffset+32], p.RefundAddr.Bytes())
	copy(args[secretHashWordOffset:secretHashWordOffset+32], p.SecretHash[:])

	data := make([]byte, 0, len(htlcRuntimeCode)+constructorArgsLen)
	data = append(data, htlcRuntimeCode...)
	data = append(data, args...)
	return data
}

// DeployedContractAddress derives the future address of a contract
// deployed by deployer at the given account nonce, per Ethereum's standard
// CREATE address rule (keccak256(rlp([deployer, nonce]))[12:]).
func DeployedContractAddress(deployer common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(deployer, nonce)
}

// BuildEthereumArtifact constructs the deployment bytecode and predicted
// contract address for an Ethereum HtlcParams. The predicted address is
// only correct if nonce is in fact the deployer's next outgoing
// transaction count at broadcast time; the caller (the action engine) is
// responsible for that invariant.
func BuildEthereumArtifact(p EthereumParams, deployer common.Address, nonce uint64) Artifact {
	data := BuildEthereumDeploymentData(p)
	addr := DeployedContractAddress(deployer, nonce)

	return Artifact{
		Ledger:  LedgerEthereum,
		Script:  data,
		Address: addr.Hex(),
	}
}
