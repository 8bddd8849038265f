package chainwatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory Source driven by a script of tip advances,
// used to exercise the shared block-traversal protocol without touching a
// real chain client.
type fakeSource struct {
	mu     sync.Mutex
	blocks map[string]Block
	tips   []string // successive LatestBlock() answers; the last entry repeats once exhausted
	tipIdx int
	events map[string][]SwapEvent
	tick   time.Duration
}

func newFakeSource(tick time.Duration) *fakeSource {
	return &fakeSource{
		blocks: make(map[string]Block),
		events: make(map[string][]SwapEvent),
		tick:   tick,
	}
}

func (f *fakeSource) addBlock(hash, parent string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[hash] = Block{Hash: hash, ParentHash: parent, Time: t}
}

func (f *fakeSource) queueTip(hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tips = append(f.tips, hash)
}

func (f *fakeSource) LatestBlock(ctx context.Context) (Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tips) == 0 {
		return Block{}, nil
	}
	hash := f.tips[f.tipIdx]
	if f.tipIdx < len(f.tips)-1 {
		f.tipIdx++
	}
	return f.blocks[hash], nil
}

func (f *fakeSource) BlockByHash(ctx context.Context, hash string) (Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[hash], nil
}

func (f *fakeSource) EventsInBlock(ctx context.Context, b Block) ([]SwapEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[b.Hash], nil
}

func (f *fakeSource) Tick() time.Duration { return f.tick }

func TestWatchWalksBackToStartOfSwap(t *testing.T) {
	start := time.Unix(1000, 0)
	src := newFakeSource(5 * time.Millisecond)

	src.addBlock("genesis", "", time.Unix(900, 0))
	src.addBlock("b1", "genesis", time.Unix(1010, 0))
	src.addBlock("b2", "b1", time.Unix(1020, 0))
	src.addBlock("b3", "b2", time.Unix(1030, 0))
	src.events["b2"] = []SwapEvent{{Kind: EventDeployed, Location: "tx2:0"}}
	src.events["b3"] = []SwapEvent{{Kind: EventFunded, Location: "tx2:0", Amount: 100000}}
	src.queueTip("b3")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var got []SwapEvent
	for ev := range Watch(ctx, src, start) {
		got = append(got, ev)
		if len(got) == 2 {
			cancel()
		}
	}

	require.Len(t, got, 2)
	require.Equal(t, EventDeployed, got[0].Kind)
	require.Equal(t, EventFunded, got[1].Kind)
}

func TestWatchStopsAtTerminalEvent(t *testing.T) {
	start := time.Unix(1000, 0)
	src := newFakeSource(5 * time.Millisecond)

	src.addBlock("genesis", "", time.Unix(900, 0))
	src.addBlock("b1", "genesis", time.Unix(1010, 0))
	var secret [32]byte
	src.events["b1"] = []SwapEvent{{Kind: EventRedeemed, Location: "tx1:0", Secret: &secret}}
	src.queueTip("b1")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var got []SwapEvent
	for ev := range Watch(ctx, src, start) {
		got = append(got, ev)
	}

	require.Len(t, got, 1)
	require.Equal(t, EventRedeemed, got[0].Kind)
}

func TestEventKindTerminal(t *testing.T) {
	require.True(t, EventRedeemed.terminal())
	require.True(t, EventRefunded.terminal())
	require.False(t, EventDeployed.terminal())
	require.False(t, EventFunded.terminal())
}
