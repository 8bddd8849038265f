// Package geth wires a thin client to a geth (or any Ethereum JSON-RPC)
// node, built on go-ethereum's ethclient and narrowed to swapd's own
// needs: block traversal, log filtering, and contract deployment/call
// broadcast.
package geth

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps *ethclient.Client with the chain ID it was dialed for,
// needed to sign and submit transactions.
type Client struct {
	*ethclient.Client
	ChainID *big.Int
}

// Dial connects to rpcURL and confirms the reported chain ID matches
// wantChainID, refusing to proceed on a mismatch so a misconfigured
// endpoint can never broadcast against the wrong network.
func Dial(ctx context.Context, rpcURL string, wantChainID int64) (*Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("geth: dial %s: %w", rpcURL, err)
	}

	gotChainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("geth: fetch chain id: %w", err)
	}
	if gotChainID.Int64() != wantChainID {
		return nil, fmt.Errorf("geth: endpoint reports chain id %s, want %d",
			gotChainID, wantChainID)
	}

	return &Client{Client: c, ChainID: gotChainID}, nil
}

// BlockHeaderByHash fetches a block header by hash, used to walk back via
// ParentHash in the shared traversal protocol.
func (c *Client) BlockHeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	return c.HeaderByHash(ctx, hash)
}

// LatestHeader returns the chain tip's header.
func (c *Client) LatestHeader(ctx context.Context) (*types.Header, error) {
	return c.HeaderByNumber(ctx, nil)
}

// ChainIDValue returns the chain ID this client was dialed for, exposed as
// a method (rather than requiring callers to reach the exported field
// directly) so narrower consumer interfaces can be satisfied by it.
func (c *Client) ChainIDValue() *big.Int {
	return c.ChainID
}

// FilterLogs narrows go-ethereum's generic FilterLogs to a single block and
// contract address, used to find Redeemed()/Refunded()/Transfer() events.
func (c *Client) FilterLogs(ctx context.Context, blockHash common.Hash, contract common.Address) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		BlockHash: &blockHash,
		Addresses: []common.Address{contract},
	}
	return c.Client.FilterLogs(ctx, query)
}
