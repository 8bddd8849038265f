package action

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/ethereum/go-ethereum/common"

	"github.com/swapnode/swapd/internal/htlc"
)

// erc20TransferSelector is the first four bytes of
// keccak256("transfer(address,uint256)"), the standard ERC20 ABI
// function selector.
var erc20TransferSelector = [4]byte{0xa9, 0x05, 0x9c, 0xbb}

// ErrDustOutput is returned when a redeem or refund template's output
// would be a dust amount under the node's relay fee, per
// btcwallet/wallet/txrules's standard dust definition.
var ErrDustOutput = errors.New("action: output amount is dust at the current relay fee")

// p2wshOutputSize is the serialized size in bytes of a P2WSH output
// script (OP_0 <32-byte-hash>), used for txrules' dust calculation.
const p2wshOutputSize = 34

// NewFundTemplate builds the PrimedTransaction for FundAlpha/FundBeta on
// Bitcoin: spend wallet inputs into the HTLC's P2WSH output, following
// sweep/txgenerator.go's createSweepTx shape (inputs, a single output, a
// fee rate applied at broadcast time rather than baked into the template).
func NewFundTemplate(inputs []wire.OutPoint, htlcAddress string, amount, feeRate int64) PrimedTransaction {
	return PrimedTransaction{
		Inputs:        inputs,
		OutputAddress: htlcAddress,
		Amount:        amount,
		FeeRate:       feeRate,
	}
}

// NewRedeemOrRefundTemplate builds the PrimedTransaction for RedeemAlpha,
// RefundAlpha, or RefundBeta on Bitcoin: spend the single HTLC outpoint
// back to a wallet-owned address. sequence and lockTime come from
// htlc.BuildBitcoinRedeem/BuildBitcoinRefund's UnlockParameters and must be
// set on the transaction before it is signed; the witness itself is
// attached by the wallet at signing time, not by this template. amount is
// the output value after the fee has already been deducted; it is
// rejected as dust using the same txrules.IsDustAmount check
// btcwallet uses before broadcasting.
func NewRedeemOrRefundTemplate(outpoint wire.OutPoint, ownAddress string, amount, feeRate int64,
	lockTime, sequence uint32) (PrimedTransaction, error) {

	relayFee := btcutil.Amount(feeRate * 1000)
	if txrules.IsDustAmount(btcutil.Amount(amount), p2wshOutputSize, relayFee) {
		return PrimedTransaction{}, ErrDustOutput
	}

	return PrimedTransaction{
		Inputs:        []wire.OutPoint{outpoint},
		OutputAddress: ownAddress,
		Amount:        amount,
		FeeRate:       feeRate,
		LockTime:      lockTime,
		Sequence:      sequence,
	}, nil
}

// NewDeployTemplate builds the DeployContract for DeployBeta on Ethereum,
// from htlc.BuildEthereumDeploymentData's output. value is non-nil only
// when the beta asset is Ether; an ERC20 HTLC deploys with zero value and
// is funded by a subsequent ERC20 transfer (see NewErc20FundTemplate).
func NewDeployTemplate(p htlc.EthereumParams, chainID *big.Int) DeployContract {
	var value *big.Int
	if p.Asset.Kind == htlc.AssetEther {
		value = p.Asset.Quantity
	} else {
		value = big.NewInt(0)
	}

	return DeployContract{
		Data:     htlc.BuildEthereumDeploymentData(p),
		Value:    value,
		GasLimit: htlc.RedeemGas, // deployment cost is bounded by the same margin as redeem
		ChainID:  chainID,
	}
}

// NewErc20FundTemplate builds the CallContract for FundBeta's ERC20
// two-step case: an ERC20 transfer(to, amount) call against the token
// contract, moving funds into the already-deployed HTLC.
func NewErc20FundTemplate(tokenContract, htlcAddress common.Address, quantity *big.Int,
	chainID *big.Int) CallContract {

	data := make([]byte, 4+32+32)
	copy(data[0:4], erc20TransferSelector[:])
	copy(data[4+12:4+32], htlcAddress.Bytes())
	quantity.FillBytes(data[4+32 : 4+64])

	return CallContract{
		To:       tokenContract,
		Data:     data,
		GasLimit: htlc.RedeemGas,
		ChainID:  chainID,
	}
}

// NewRedeemCallTemplate builds the CallContract for RedeemBeta/RedeemAlpha
// on Ethereum: calling the deployed HTLC with the secret as calldata,
// matching the ethereum chain-watch source's Redeemed-event extraction
// (internal/chainwatch/ethereum.matchTerminalLogs reads the secret back out
// of this same transaction's input data).
func NewRedeemCallTemplate(contract common.Address, secret [32]byte, chainID *big.Int) CallContract {
	return CallContract{
		To:       contract,
		Data:     secret[:],
		GasLimit: htlc.RedeemGas,
		ChainID:  chainID,
	}
}

// NewRefundCallTemplate builds the CallContract for RefundBeta on Ethereum.
// minBlockTimestamp is the HTLC's expiry; the caller must not broadcast
// until the chain's latest block timestamp reaches it, since the deployed
// contract itself also enforces the expiry on-chain.
func NewRefundCallTemplate(contract common.Address, minBlockTimestamp int64, chainID *big.Int) CallContract {
	ts := minBlockTimestamp
	return CallContract{
		To:                contract,
		Data:              nil,
		GasLimit:          htlc.RefundGas,
		ChainID:           chainID,
		MinBlockTimestamp: &ts,
	}
}
