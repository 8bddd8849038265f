package executor

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/wallet"
)

// fakeEthereum records the single transaction the executor submits, the
// way fakeBitcoin does for the Bitcoin path.
type fakeEthereum struct {
	chainID  *big.Int
	nonce    uint64
	gasPrice *big.Int
	header   *ethtypes.Header
	sentTx   *ethtypes.Transaction
}

func (f *fakeEthereum) ChainIDValue() *big.Int { return f.chainID }

func (f *fakeEthereum) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeEthereum) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeEthereum) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.sentTx = tx
	return nil
}

func (f *fakeEthereum) LatestHeader(ctx context.Context) (*ethtypes.Header, error) {
	return f.header, nil
}

func newFakeEthereum() *fakeEthereum {
	return &fakeEthereum{
		chainID:  big.NewInt(1337),
		nonce:    3,
		gasPrice: big.NewInt(2_000_000_000),
		header:   &ethtypes.Header{Time: uint64(time.Now().Unix())},
	}
}

func etherParams(redeem, refund wallet.Seed) htlc.HtlcParams {
	secret := [32]byte{9, 9, 9}
	redeemAddr, _ := redeem.EthereumAddress()
	refundAddr, _ := refund.EthereumAddress()
	var redeemID, refundID [20]byte
	copy(redeemID[:], redeemAddr.Bytes())
	copy(refundID[:], refundAddr.Bytes())
	return htlc.HtlcParams{
		Ledger:         htlc.LedgerEthereum,
		Asset:          htlc.Asset{Kind: htlc.AssetEther, Quantity: big.NewInt(5_000_000_000_000_000_000)},
		RedeemIdentity: redeemID,
		RefundIdentity: refundID,
		Expiry:         time.Now().Add(time.Hour).Unix(),
		SecretHash:     sha256.Sum256(secret[:]),
	}
}

func TestDeployEthereumSendsValueForEtherLeg(t *testing.T) {
	var redeemSeed, refundSeed wallet.Seed
	redeemSeed[0] = 1
	refundSeed[0] = 2
	params := etherParams(redeemSeed, refundSeed)

	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	sw := &swap.Swap{AlphaParams: params}

	ok, err := e.deployEthereum(context.Background(), sw, redeemSeed, params)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, fake.sentTx)
	require.Equal(t, big.NewInt(5_000_000_000_000_000_000), fake.sentTx.Value())
	require.Nil(t, fake.sentTx.To()) // contract creation
}

func TestDeployEthereumSendsZeroValueForErc20Leg(t *testing.T) {
	var redeemSeed, refundSeed wallet.Seed
	redeemSeed[0] = 3
	refundSeed[0] = 4
	params := etherParams(redeemSeed, refundSeed)
	params.Asset = htlc.Asset{
		Kind:          htlc.AssetErc20,
		Quantity:      big.NewInt(42),
		TokenContract: common.HexToAddress("0x00000000000000000000000000000000000abc"),
	}

	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	sw := &swap.Swap{BetaParams: params}

	ok, err := e.deployEthereum(context.Background(), sw, redeemSeed, params)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(0).Int64(), fake.sentTx.Value().Int64())
}

func TestFundBetaAbstainsOnEtherLeg(t *testing.T) {
	var redeemSeed, refundSeed wallet.Seed
	params := etherParams(redeemSeed, refundSeed)

	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	sw := &swap.Swap{BetaParams: params, Beta: swap.LedgerRecord{Location: "0xdeadbeef"}}

	var signingSeed wallet.Seed
	signingSeed[0] = 9
	ok, err := e.fundBeta(context.Background(), sw, signingSeed)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, fake.sentTx, "an ether beta leg must not issue a second funding transaction")
}

func TestFundBetaSendsErc20TransferWhenDeployed(t *testing.T) {
	var redeemSeed, refundSeed wallet.Seed
	params := etherParams(redeemSeed, refundSeed)
	params.Asset = htlc.Asset{
		Kind:          htlc.AssetErc20,
		Quantity:      big.NewInt(42),
		TokenContract: common.HexToAddress("0x00000000000000000000000000000000000abc"),
	}

	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	sw := &swap.Swap{BetaParams: params, Beta: swap.LedgerRecord{Location: "0x00000000000000000000000000000000000def"}}

	var signingSeed wallet.Seed
	signingSeed[0] = 10
	ok, err := e.fundBeta(context.Background(), sw, signingSeed)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, fake.sentTx)
	require.Equal(t, params.Asset.TokenContract, *fake.sentTx.To())
}

func TestFundBetaRequiresDeployObservedForErc20(t *testing.T) {
	params := htlc.HtlcParams{
		Ledger: htlc.LedgerEthereum,
		Asset:  htlc.Asset{Kind: htlc.AssetErc20, Quantity: big.NewInt(1), TokenContract: common.Address{}},
	}
	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	sw := &swap.Swap{BetaParams: params} // Beta.Location left empty: deploy not yet observed

	var signingSeed wallet.Seed
	signingSeed[0] = 11
	_, err := e.fundBeta(context.Background(), sw, signingSeed)
	require.Error(t, err)
}

func TestRedeemEthereumSendsSecretAsCalldata(t *testing.T) {
	secret := [32]byte{7, 7, 7}
	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	record := swap.LedgerRecord{Location: "0x00000000000000000000000000000000000aaa"}

	var signingSeed wallet.Seed
	signingSeed[0] = 12
	ok, err := e.redeemEthereum(context.Background(), signingSeed, record, secret)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, secret[:], fake.sentTx.Data())
	require.Equal(t, common.HexToAddress(record.Location), *fake.sentTx.To())
}

func TestRefundEthereumAbstainsBeforeChainReachesExpiry(t *testing.T) {
	fake := newFakeEthereum()
	fake.header = &ethtypes.Header{Time: 100}
	e := testExecutor(t, nil, fake)
	record := swap.LedgerRecord{Location: "0x00000000000000000000000000000000000aaa"}

	var signingSeed wallet.Seed
	signingSeed[0] = 13
	ok, err := e.refundEthereum(context.Background(), signingSeed, record, 200)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, fake.sentTx)
}

func TestRefundEthereumSendsOnceChainPassesExpiry(t *testing.T) {
	fake := newFakeEthereum()
	fake.header = &ethtypes.Header{Time: 500}
	e := testExecutor(t, nil, fake)
	record := swap.LedgerRecord{Location: "0x00000000000000000000000000000000000aaa"}

	var signingSeed wallet.Seed
	signingSeed[0] = 14
	ok, err := e.refundEthereum(context.Background(), signingSeed, record, 200)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, fake.sentTx)
}

func TestRedeemEthereumRequiresDeployObserved(t *testing.T) {
	fake := newFakeEthereum()
	e := testExecutor(t, nil, fake)
	record := swap.LedgerRecord{} // Location empty

	var signingSeed wallet.Seed
	signingSeed[0] = 15
	_, err := e.redeemEthereum(context.Background(), signingSeed, record, [32]byte{})
	require.Error(t, err)
}
