package swap

import (
	"fmt"

	"github.com/swapnode/swapd/config"
	"github.com/swapnode/swapd/internal/swaperrors"
)

// ValidateExpiries enforces spec.md §3's invariant — alpha_expiry must
// exceed beta_expiry by more than the operator's configured safety margin —
// before a SwapRequest is accepted or a swap is initiated locally. This is
// a Protocol error per spec.md §7: it must be surfaced before any on-chain
// action, never retried.
func ValidateExpiries(policy config.ExpiryPolicy, alphaExpiry, betaExpiry int64) error {
	marginSeconds := int64(policy.SafetyMargin.Seconds())
	if alphaExpiry <= betaExpiry+marginSeconds {
		return swaperrors.Newf(swaperrors.Protocol,
			"alpha_expiry (%d) must exceed beta_expiry (%d) by more than the safety margin (%ds)",
			alphaExpiry, betaExpiry, marginSeconds)
	}
	return nil
}

// ValidateAccept checks a peer's Accept response against the SwapRequest it
// answers: its ID must match the request's, and both identities must be
// well-formed 20-byte values. Anything else wrong with an Accept (e.g. a
// duplicate response) is the caller's responsibility to check against its
// own pending-request table.
func ValidateAccept(req SwapRequest, acc Accept) (alphaRedeem, betaRefund [20]byte, err error) {
	if acc.ID != req.ID {
		return alphaRedeem, betaRefund, swaperrors.Newf(swaperrors.Counterparty,
			"accept id %s does not match request id %s", acc.ID, req.ID)
	}

	alphaRedeem, err = identityFromHex(acc.AlphaRedeemIdentity)
	if err != nil {
		return alphaRedeem, betaRefund, swaperrors.Wrap(swaperrors.Counterparty, err)
	}
	betaRefund, err = identityFromHex(acc.BetaRefundIdentity)
	if err != nil {
		return alphaRedeem, betaRefund, swaperrors.Wrap(swaperrors.Counterparty, err)
	}
	return alphaRedeem, betaRefund, nil
}

// ValidateSwapRequest checks the fields a recipient must verify before
// deciding to Accept: a supported hash function, and a well-formed
// secret_hash. The expiry-ordering check is deliberately separate
// (ValidateExpiries) since it is also run by the proposer before sending.
func ValidateSwapRequest(req SwapRequest) ([32]byte, error) {
	if req.HashFunction != "SHA-256" {
		return [32]byte{}, swaperrors.Newf(swaperrors.Protocol,
			"unsupported hash_function %q", req.HashFunction)
	}

	hash, err := secretHashFromHex(req.SecretHash)
	if err != nil {
		return [32]byte{}, swaperrors.Wrap(swaperrors.Counterparty, err)
	}

	if req.Alpha.Ledger == req.Beta.Ledger && req.Alpha.AssetKind == req.Beta.AssetKind {
		return [32]byte{}, swaperrors.New(swaperrors.Protocol,
			fmt.Sprintf("alpha and beta legs are identical (%s/%s)", req.Alpha.Ledger, req.Alpha.AssetKind))
	}

	return hash, nil
}
