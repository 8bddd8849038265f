package swap

import (
	"context"

	"github.com/swapnode/swapd/internal/chainwatch"
)

// SourceFactory builds the alpha/beta chainwatch.Source pair for a swap
// once its HTLC parameters are known, so that callers outside this
// package (internal/httpapi's swap-creation route) don't need to know how
// to dial bitcoind/geth themselves. The
// concrete implementation lives in cmd/swapd, where the RPC client pool
// is constructed from config.Config.
type SourceFactory interface {
	SourcesFor(ctx context.Context, sw *Swap) (alpha, beta chainwatch.Source, err error)
}
