package executor

import (
	"context"

	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/swaperrors"
	"github.com/swapnode/swapd/internal/wallet"
)

// legParams returns the HtlcParams and expiry for the requested leg, so
// the per-chain helpers never need to repeat this isAlpha branch
// themselves.
func legParams(sw *swap.Swap, isAlpha bool) (htlc.HtlcParams, int64) {
	if isAlpha {
		return sw.AlphaParams, sw.AlphaExpiry
	}
	return sw.BetaParams, sw.BetaExpiry
}

// fundLeg executes FundAlpha (FundBeta goes through fundBeta instead): a
// single transaction that both deploys and funds the HTLC. Per spec.md
// §4.4's table, alpha always takes this single-step path regardless of
// ledger (row 1 has no separate "Deploy α"); NewDeployTemplate's own doc
// comment is why that is sound for Ether but not ERC20 — by convention
// alpha never carries an ERC20 asset (see DESIGN.md).
func (e *Executor) fundLeg(ctx context.Context, sw *swap.Swap, key wallet.Seed, isAlpha bool) (bool, error) {
	params, _ := legParams(sw, isAlpha)

	switch params.Ledger {
	case htlc.LedgerBitcoin:
		return e.fundBitcoin(sw, key, params)
	case htlc.LedgerEthereum:
		return e.deployEthereum(ctx, sw, key, params)
	default:
		return false, e.errf(swaperrors.Internal, "executor: unsupported ledger for fund leg")
	}
}

// deployBeta executes Bob's DeployBeta, always Ethereum per the decision
// table's own "Deploy β (if Ethereum)" gate.
func (e *Executor) deployBeta(ctx context.Context, sw *swap.Swap, key wallet.Seed) (bool, error) {
	return e.deployEthereum(ctx, sw, key, sw.BetaParams)
}

// fundBeta executes Bob's FundBeta. Three cases reach here per the
// decision table: a Bitcoin leg's single-step fund (mirrors fundLeg's
// Bitcoin branch), an ERC20 leg's second-step token transfer, and an Ether
// leg's redundant recommendation — the deploy transaction already carried
// the value (NewDeployTemplate), so an Ether FundBeta is a no-op abstention
// rather than a second payment. That last case is a narrow race: the chain
// watcher can emit Deployed and Funded for the same Ether deployment
// transaction as two distinct events, and the engine may be asked to act
// between them.
func (e *Executor) fundBeta(ctx context.Context, sw *swap.Swap, key wallet.Seed) (bool, error) {
	switch sw.BetaParams.Ledger {
	case htlc.LedgerBitcoin:
		return e.fundBitcoin(sw, key, sw.BetaParams)
	case htlc.LedgerEthereum:
		if sw.BetaParams.Asset.Kind == htlc.AssetEther {
			e.log().Debugf("swap %s: abstaining from fund_beta, ether leg already funded at deploy", sw.ID)
			return false, nil
		}
		return e.fundErc20(ctx, sw, key)
	default:
		return false, e.errf(swaperrors.Internal, "executor: unsupported ledger for fund_beta")
	}
}

func (e *Executor) redeemLeg(ctx context.Context, sw *swap.Swap, key wallet.Seed, isAlpha bool) (bool, error) {
	secret, ok := e.Secrets.Secret(sw.ID)
	if !ok {
		return false, e.errf(swaperrors.Internal, "executor: swap %s has no known secret to redeem with", sw.ID)
	}

	params, _ := legParams(sw, isAlpha)
	record := sw.Alpha
	if !isAlpha {
		record = sw.Beta
	}

	switch params.Ledger {
	case htlc.LedgerBitcoin:
		return e.redeemBitcoin(sw, key, params, record, secret)
	case htlc.LedgerEthereum:
		return e.redeemEthereum(ctx, key, record, secret)
	default:
		return false, e.errf(swaperrors.Internal, "executor: unsupported ledger for redeem")
	}
}

func (e *Executor) refundLeg(ctx context.Context, sw *swap.Swap, key wallet.Seed, isAlpha bool) (bool, error) {
	params, expiry := legParams(sw, isAlpha)
	record := sw.Alpha
	if !isAlpha {
		record = sw.Beta
	}

	switch params.Ledger {
	case htlc.LedgerBitcoin:
		return e.refundBitcoin(sw, key, params, record)
	case htlc.LedgerEthereum:
		return e.refundEthereum(ctx, key, record, expiry)
	default:
		return false, e.errf(swaperrors.Internal, "executor: unsupported ledger for refund")
	}
}
