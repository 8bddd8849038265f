// Package bitcoin adapts a bitcoind/btcd RPC connection to the
// chainwatch.Source interface, implementing spec.md §4.2's Bitcoin
// matching rules: a single transaction both deploys and funds the P2WSH
// output, and redeem/refund are distinguished by which witness branch a
// later spend of that output takes.
package bitcoin

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/rpcclient/bitcoind"
	"github.com/swapnode/swapd/internal/secret"
)

// Source watches a single Bitcoin HTLC instance: the P2WSH output
// BuildBitcoinArtifact derives from params, and once funded, the outpoint
// that output's own spend resolves to.
type Source struct {
	client        *bitcoind.Client
	params        htlc.BitcoinParams
	witnessScript []byte
	pkScript      []byte
	tick          time.Duration

	outpoint *wire.OutPoint
}

// NewSource builds a Source for params, ready to be passed to
// chainwatch.Watch.
func NewSource(client *bitcoind.Client, params htlc.BitcoinParams, tick time.Duration) (*Source, error) {
	witnessScript, err := htlc.BitcoinWitnessScript(params)
	if err != nil {
		return nil, fmt.Errorf("bitcoin source: build witness script: %w", err)
	}
	pkScript, err := htlc.BitcoinHtlcOutputScript(witnessScript)
	if err != nil {
		return nil, fmt.Errorf("bitcoin source: build pkscript: %w", err)
	}

	return &Source{
		client:        client,
		params:        params,
		witnessScript: witnessScript,
		pkScript:      pkScript,
		tick:          tick,
	}, nil
}

func (s *Source) Tick() time.Duration { return s.tick }

func (s *Source) LatestBlock(ctx context.Context) (chainwatch.Block, error) {
	hash, err := s.client.LatestBlockHash()
	if err != nil {
		return chainwatch.Block{}, err
	}
	header, err := s.client.BlockHeaderByHash(hash)
	if err != nil {
		return chainwatch.Block{}, err
	}
	return toBlock(hash, header), nil
}

func (s *Source) BlockByHash(ctx context.Context, hash string) (chainwatch.Block, error) {
	header, err := s.client.BlockHeaderByHash(hash)
	if err != nil {
		return chainwatch.Block{}, err
	}
	return toBlock(hash, header), nil
}

func toBlock(hash string, header *wire.BlockHeader) chainwatch.Block {
	return chainwatch.Block{
		Hash:       hash,
		ParentHash: header.PrevBlock.String(),
		Time:       header.Timestamp,
	}
}

// EventsInBlock implements chainwatch.Source's matching rules: before the
// HTLC output is seen, every transaction's outputs are scanned for the
// expected pkScript; once found, subsequent blocks scan for a spend of
// that outpoint and classify it by witness shape.
func (s *Source) EventsInBlock(ctx context.Context, b chainwatch.Block) ([]chainwatch.SwapEvent, error) {
	block, err := s.client.BlockByHash(b.Hash)
	if err != nil {
		return nil, err
	}

	var events []chainwatch.SwapEvent

	for _, tx := range block.Transactions {
		if s.outpoint == nil {
			events = append(events, s.matchDeployAndFund(tx, b.Time)...)
			continue
		}
		events = append(events, s.matchSpend(tx, b.Time)...)
	}

	return events, nil
}

func (s *Source) matchDeployAndFund(tx *wire.MsgTx, blockTime time.Time) []chainwatch.SwapEvent {
	for vout, out := range tx.TxOut {
		if !scriptsEqual(out.PkScript, s.pkScript) {
			continue
		}

		txHash := tx.TxHash()
		loc := fmt.Sprintf("%s:%d", txHash.String(), vout)
		s.outpoint = &wire.OutPoint{Hash: txHash, Index: uint32(vout)}

		events := []chainwatch.SwapEvent{
			{Kind: chainwatch.EventDeployed, Location: loc, BlockTime: blockTime},
		}
		if out.Value != s.params.Amount {
			events = append(events, chainwatch.SwapEvent{
				Kind: chainwatch.EventIncorrectlyFunded, Location: loc,
				Amount: out.Value, BlockTime: blockTime,
			})
		} else {
			events = append(events, chainwatch.SwapEvent{
				Kind: chainwatch.EventFunded, Location: loc,
				Amount: out.Value, BlockTime: blockTime,
			})
		}
		return events
	}
	return nil
}

func (s *Source) matchSpend(tx *wire.MsgTx, blockTime time.Time) []chainwatch.SwapEvent {
	for _, in := range tx.TxIn {
		if in.PreviousOutPoint != *s.outpoint {
			continue
		}

		txHash := tx.TxHash()
		loc := txHash.String()

		revealed, err := secret.ExtractFromWitnessElements(in.Witness, s.params.SecretHash)
		if err == nil {
			return []chainwatch.SwapEvent{{
				Kind: chainwatch.EventRedeemed, Location: loc,
				Secret: &revealed, BlockTime: blockTime,
			}}
		}
		return []chainwatch.SwapEvent{{
			Kind: chainwatch.EventRefunded, Location: loc, BlockTime: blockTime,
		}}
	}
	return nil
}

func scriptsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
