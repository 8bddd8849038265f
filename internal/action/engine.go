package action

// Recommend implements spec.md §4.4's decision table: a pure function of
// (role, declined, alpha_state, beta_state, now, alpha_expiry, beta_expiry)
// to at most one action. Rules are checked in priority order; the first
// match wins. Returning None in a non-terminal state is legal — it means
// waiting for the counterparty or for an expiry to pass.
func Recommend(in Input) Kind {
	if in.Declined {
		return None
	}

	// Refund rules are checked before the forward-progress rules, so where
	// a refund row matches it wins. A state no refund row covers (e.g.
	// Alice with both legs Funded) still gets its forward-progress action
	// after an expiry has passed.
	if in.Role == RoleAlice && in.AlphaState == StateFunded && in.Now >= in.AlphaExpiry &&
		!in.BetaState.Terminal() && in.BetaState != StateFunded {
		return RefundAlpha
	}
	if in.Role == RoleBob && in.BetaState == StateFunded && in.Now >= in.BetaExpiry &&
		in.AlphaState == StateFunded {
		return RefundBeta
	}

	switch {
	case in.Role == RoleAlice && in.AlphaState == StateNotDeployed:
		return FundAlpha

	case in.Role == RoleBob && in.AlphaState == StateFunded && in.BetaState == StateNotDeployed:
		if in.BetaIsEthereum {
			return DeployBeta
		}
		return FundBeta

	case in.Role == RoleBob && in.AlphaState == StateFunded && in.BetaState == StateDeployed:
		// ERC20's two-step fund: the contract exists but the token
		// transfer into it hasn't happened yet.
		return FundBeta

	case in.Role == RoleAlice && in.AlphaState == StateFunded && in.BetaState == StateFunded:
		return RedeemBeta

	case in.Role == RoleBob && in.AlphaState == StateFunded && in.BetaState == StateRedeemed:
		return RedeemAlpha
	}

	return None
}
