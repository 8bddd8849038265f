package action

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecommendDecisionTable(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Kind
	}{
		{
			name: "alice funds alpha when not yet deployed",
			in:   Input{Role: RoleAlice, AlphaState: StateNotDeployed, BetaState: StateNotDeployed},
			want: FundAlpha,
		},
		{
			name: "bob deploys beta once alpha funded, ethereum beta",
			in: Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateNotDeployed,
				BetaIsEthereum: true},
			want: DeployBeta,
		},
		{
			name: "bob funds beta once alpha funded, bitcoin beta",
			in: Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateNotDeployed,
				BetaIsEthereum: false},
			want: FundBeta,
		},
		{
			name: "bob funds beta's erc20 transfer once the contract is deployed",
			in:   Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateDeployed},
			want: FundBeta,
		},
		{
			name: "alice redeems beta once both sides funded",
			in:   Input{Role: RoleAlice, AlphaState: StateFunded, BetaState: StateFunded},
			want: RedeemBeta,
		},
		{
			name: "bob redeems alpha once beta is redeemed",
			in:   Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateRedeemed},
			want: RedeemAlpha,
		},
		{
			name: "alice refunds alpha once its expiry passes with beta undeployed",
			in: Input{Role: RoleAlice, AlphaState: StateFunded, BetaState: StateNotDeployed,
				Now: 1000, AlphaExpiry: 900},
			want: RefundAlpha,
		},
		{
			name: "bob refunds beta once its expiry passes with both sides funded",
			in: Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateFunded,
				Now: 1000, BetaExpiry: 900},
			want: RefundBeta,
		},
		{
			name: "alice waits before alpha's expiry passes",
			in: Input{Role: RoleAlice, AlphaState: StateFunded, BetaState: StateNotDeployed,
				Now: 800, AlphaExpiry: 900},
			want: None,
		},
		{
			name: "bob waits before beta's expiry passes",
			in: Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateFunded,
				Now: 800, BetaExpiry: 900},
			want: None,
		},
		{
			name: "a declined swap recommends no action regardless of state",
			in:   Input{Role: RoleAlice, Declined: true, AlphaState: StateNotDeployed},
			want: None,
		},
		{
			name: "bob's erc20 fund_beta does not depend on the clock",
			in:   Input{Role: RoleBob, AlphaState: StateFunded, BetaState: StateDeployed, Now: 0},
			want: FundBeta,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Recommend(tc.in))
		})
	}
}

func TestLedgerStateTerminal(t *testing.T) {
	require.True(t, StateRedeemed.Terminal())
	require.True(t, StateRefunded.Terminal())
	require.True(t, StateIncorrectlyFunded.Terminal())
	require.False(t, StateNotDeployed.Terminal())
	require.False(t, StateDeployed.Terminal())
	require.False(t, StateFunded.Terminal())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "fund_alpha", FundAlpha.String())
	require.Equal(t, "redeem_beta", RedeemBeta.String())
	require.Equal(t, "none", None.String())
}
