package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/swaperrors"
	"github.com/swapnode/swapd/internal/wallet"
)

// deployEthereum executes FundAlpha (alpha on Ethereum) and DeployBeta: a
// single contract-creation transaction, carrying value directly when the
// asset is Ether (NewDeployTemplate), zero otherwise (the ERC20 two-step
// case completed later by fundErc20).
func (e *Executor) deployEthereum(ctx context.Context, sw *swap.Swap, key wallet.Seed, params htlc.HtlcParams) (bool, error) {
	ep := htlc.EthereumParamsFrom(params)
	tmpl := action.NewDeployTemplate(ep, e.Ethereum.ChainIDValue())

	privKey, err := key.EthereumKey()
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}
	addr, err := key.EthereumAddress()
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	nonce, err := e.Ethereum.PendingNonceAt(ctx, addr)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Chain, err)
	}
	gasPrice, err := e.Ethereum.SuggestGasPrice(ctx)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Chain, err)
	}

	tx := types.NewContractCreation(nonce, tmpl.Value, tmpl.GasLimit, gasPrice, tmpl.Data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(e.Ethereum.ChainIDValue()), privKey)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	if err := e.Ethereum.SendTransaction(ctx, signed); err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}

	predicted := htlc.DeployedContractAddress(addr, nonce)
	e.log().Infof("swap %s: broadcast ethereum deploy, predicted htlc address %s", sw.ID, predicted.Hex())
	return true, nil
}

// fundErc20 executes FundBeta's ERC20 two-step case: a transfer(to, amount)
// call against the token contract, moving funds into the already-deployed
// HTLC at sw.Beta.Location.
func (e *Executor) fundErc20(ctx context.Context, sw *swap.Swap, key wallet.Seed) (bool, error) {
	if sw.Beta.Location == "" {
		return false, swaperrors.New(swaperrors.Internal, "executor: fund_beta recommended before deploy was observed")
	}
	htlcAddr := common.HexToAddress(sw.Beta.Location)
	tmpl := action.NewErc20FundTemplate(sw.BetaParams.Asset.TokenContract, htlcAddr,
		sw.BetaParams.Asset.Quantity, e.Ethereum.ChainIDValue())

	return e.sendCall(ctx, key, tmpl)
}

// redeemEthereum executes RedeemBeta/RedeemAlpha on Ethereum: call the
// deployed HTLC with secret as calldata (NewRedeemCallTemplate), matching
// chainwatch/ethereum's matchTerminalLogs calldata-as-secret extraction.
func (e *Executor) redeemEthereum(ctx context.Context, key wallet.Seed, record swap.LedgerRecord,
	secret [32]byte) (bool, error) {

	if record.Location == "" {
		return false, swaperrors.New(swaperrors.Internal, "executor: redeem recommended before deploy was observed")
	}
	contract := common.HexToAddress(record.Location)
	tmpl := action.NewRedeemCallTemplate(contract, secret, e.Ethereum.ChainIDValue())
	return e.sendCall(ctx, key, tmpl)
}

// refundEthereum executes RefundAlpha/RefundBeta on Ethereum. If the chain
// tip hasn't yet reached the HTLC's expiry, abstaining is correct: the
// engine will recommend this again on the next re-evaluation once it has.
func (e *Executor) refundEthereum(ctx context.Context, key wallet.Seed, record swap.LedgerRecord,
	expiry int64) (bool, error) {

	if record.Location == "" {
		return false, swaperrors.New(swaperrors.Internal, "executor: refund recommended before deploy was observed")
	}

	head, err := e.Ethereum.LatestHeader(ctx)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Chain, err)
	}
	if int64(head.Time) < expiry {
		return false, nil
	}

	contract := common.HexToAddress(record.Location)
	tmpl := action.NewRefundCallTemplate(contract, expiry, e.Ethereum.ChainIDValue())
	return e.sendCall(ctx, key, tmpl)
}

// sendCall signs and broadcasts a CallContract template against an
// already-deployed HTLC or token contract.
func (e *Executor) sendCall(ctx context.Context, key wallet.Seed, tmpl action.CallContract) (bool, error) {
	privKey, err := key.EthereumKey()
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}
	addr, err := key.EthereumAddress()
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	nonce, err := e.Ethereum.PendingNonceAt(ctx, addr)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Chain, err)
	}
	gasPrice, err := e.Ethereum.SuggestGasPrice(ctx)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Chain, err)
	}

	tx := types.NewTransaction(nonce, tmpl.To, big.NewInt(0), tmpl.GasLimit, gasPrice, tmpl.Data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(e.Ethereum.ChainIDValue()), privKey)
	if err != nil {
		return false, swaperrors.Wrap(swaperrors.Internal, err)
	}

	if err := e.Ethereum.SendTransaction(ctx, signed); err != nil {
		return false, swaperrors.Wrap(swaperrors.Execution, err)
	}
	return true, nil
}
