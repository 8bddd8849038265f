// Package ethereum adapts a geth JSON-RPC connection to the
// chainwatch.Source interface, implementing spec.md §4.2's Ethereum
// matching rules: the deployment transaction is matched by its input data,
// funding by either tx.value (Ether) or a Transfer log (ERC20), and
// redeem/refund by the Redeemed()/Refunded() log topics.
package ethereum

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/rpcclient/geth"
	swaplog "github.com/swapnode/swapd/log"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
var erc20TransferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// Source watches a single Ethereum HTLC instance: a contract deployment
// matching htlc.BuildEthereumDeploymentData(params) from a known deployer
// and nonce, and the deployed contract's terminal events thereafter.
type Source struct {
	client *geth.Client
	params htlc.EthereumParams

	deployer common.Address
	nonce    uint64

	expectedData  []byte
	predictedAddr common.Address

	tick     time.Duration
	deployed bool
}

// NewSource builds a Source for params, predicting the contract address
// from the deployer's address and the nonce it will deploy at.
func NewSource(client *geth.Client, params htlc.EthereumParams, deployer common.Address,
	nonce uint64, tick time.Duration) *Source {

	return &Source{
		client:        client,
		params:        params,
		deployer:      deployer,
		nonce:         nonce,
		expectedData:  htlc.BuildEthereumDeploymentData(params),
		predictedAddr: htlc.DeployedContractAddress(deployer, nonce),
		tick:          tick,
	}
}

func (s *Source) Tick() time.Duration { return s.tick }

func (s *Source) LatestBlock(ctx context.Context) (chainwatch.Block, error) {
	header, err := s.client.LatestHeader(ctx)
	if err != nil {
		return chainwatch.Block{}, err
	}
	return toBlock(header), nil
}

func (s *Source) BlockByHash(ctx context.Context, hash string) (chainwatch.Block, error) {
	header, err := s.client.BlockHeaderByHash(ctx, common.HexToHash(hash))
	if err != nil {
		return chainwatch.Block{}, err
	}
	return toBlock(header), nil
}

func toBlock(header *types.Header) chainwatch.Block {
	return chainwatch.Block{
		Hash:       header.Hash().Hex(),
		ParentHash: header.ParentHash.Hex(),
		Time:       time.Unix(int64(header.Time), 0),
	}
}

// EventsInBlock implements chainwatch.Source. Before the deployment is
// seen, every transaction's input data is checked against expectedData;
// once found, subsequent blocks check the predicted contract address
// (and, for ERC20, the token contract) for funding and terminal events.
func (s *Source) EventsInBlock(ctx context.Context, b chainwatch.Block) ([]chainwatch.SwapEvent, error) {
	blockHash := common.HexToHash(b.Hash)
	block, err := s.client.BlockByHash(ctx, blockHash)
	if err != nil {
		return nil, fmt.Errorf("ethereum source: fetch block %s: %w", b.Hash, err)
	}

	var events []chainwatch.SwapEvent

	for _, tx := range block.Transactions() {
		if !s.deployed {
			ev, matched := s.matchDeployment(tx, b.Time)
			if matched {
				events = append(events, ev...)
				s.deployed = true
			}
			continue
		}

		ev, err := s.matchPostDeployment(ctx, tx, blockHash, b.Time)
		if err != nil {
			continue
		}
		events = append(events, ev...)
	}

	return events, nil
}

func (s *Source) matchDeployment(tx *types.Transaction, blockTime time.Time) ([]chainwatch.SwapEvent, bool) {
	if tx.To() != nil {
		return nil, false
	}
	if !bytes.Equal(tx.Data(), s.expectedData) {
		return nil, false
	}

	loc := s.predictedAddr.Hex()
	events := []chainwatch.SwapEvent{
		{Kind: chainwatch.EventDeployed, Location: loc, BlockTime: blockTime},
	}

	if s.params.Asset.Kind == htlc.AssetEther {
		amount := tx.Value()
		ev := chainwatch.SwapEvent{Kind: chainwatch.EventFunded, Location: loc, BlockTime: blockTime}
		if amount.Cmp(s.params.Asset.Quantity) != 0 {
			ev.Kind = chainwatch.EventIncorrectlyFunded
		}
		if amount.IsInt64() {
			ev.Amount = amount.Int64()
		}
		events = append(events, ev)
	}

	return events, true
}

func (s *Source) matchPostDeployment(ctx context.Context, tx *types.Transaction, blockHash common.Hash,
	blockTime time.Time) ([]chainwatch.SwapEvent, error) {

	receipt, err := s.client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}

	var events []chainwatch.SwapEvent

	if s.params.Asset.Kind == htlc.AssetErc20 && tx.To() != nil && *tx.To() == s.params.Asset.TokenContract {
		events = append(events, s.matchErc20Transfer(receipt)...)
	}

	if tx.To() != nil && *tx.To() == s.predictedAddr {
		events = append(events, s.matchTerminalLogs(receipt, tx, blockTime)...)
	}

	return events, nil
}

func (s *Source) matchErc20Transfer(receipt *types.Receipt) []chainwatch.SwapEvent {
	for _, l := range receipt.Logs {
		if len(l.Topics) != 3 || l.Topics[0] != erc20TransferTopic {
			continue
		}
		to := common.BytesToAddress(l.Topics[2].Bytes())
		if to != s.predictedAddr {
			continue
		}

		value := new(big.Int).SetBytes(l.Data)
		loc := s.predictedAddr.Hex()
		ev := chainwatch.SwapEvent{Kind: chainwatch.EventFunded, Location: loc}
		if value.Cmp(s.params.Asset.Quantity) < 0 {
			ev.Kind = chainwatch.EventIncorrectlyFunded
		}
		if value.IsInt64() {
			ev.Amount = value.Int64()
		}
		return []chainwatch.SwapEvent{ev}
	}
	return nil
}

func (s *Source) matchTerminalLogs(receipt *types.Receipt, tx *types.Transaction, blockTime time.Time) []chainwatch.SwapEvent {
	loc := s.predictedAddr.Hex()

	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case htlc.RedeemedEventTopic:
			var secretVal [32]byte
			copy(secretVal[:], tx.Data())
			return []chainwatch.SwapEvent{{
				Kind: chainwatch.EventRedeemed, Location: loc,
				Secret: &secretVal, BlockTime: blockTime,
			}}
		case htlc.RefundedEventTopic:
			return []chainwatch.SwapEvent{{
				Kind: chainwatch.EventRefunded, Location: loc, BlockTime: blockTime,
			}}
		}
	}
	// A transaction to the HTLC that emits neither event is a no-op
	// per spec.md §4.2; log at WARN and continue rather than treat it
	// as a match (resolves spec.md §9's open question on this case).
	swaplog.ChainWatchLog.Warnf("ethereum htlc %s: transaction %s emitted neither Redeemed() nor Refunded(); ignoring it",
		loc, tx.Hash().Hex())
	return nil
}
