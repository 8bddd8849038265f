package orderbook

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBookAddGetRemove(t *testing.T) {
	b := NewBook()
	o := NewOrder(Sell, 100_000, big.NewInt(50_000), time.Unix(1, 0))

	b.Add(o)

	got, err := b.Get(o.ID)
	require.NoError(t, err)
	require.Equal(t, o, got)

	require.NoError(t, b.Remove(o.ID))

	_, err = b.Get(o.ID)
	require.ErrorAs(t, err, &ErrOrderNotFound{})
}

func TestBookRemoveUnknownOrder(t *testing.T) {
	b := NewBook()
	err := b.Remove(uuid.New())
	require.ErrorAs(t, err, &ErrOrderNotFound{})
}

func TestBookListByPosition(t *testing.T) {
	b := NewBook()
	buy := NewOrder(Buy, 1, big.NewInt(1), time.Unix(1, 0))
	sell := NewOrder(Sell, 1, big.NewInt(1), time.Unix(1, 0))
	b.Add(buy)
	b.Add(sell)

	require.Len(t, b.List(), 2)

	buys := b.ListByPosition(Buy)
	require.Len(t, buys, 1)
	require.Equal(t, buy.ID, buys[0].ID)
}

func TestOrderWeiPerBTC(t *testing.T) {
	o := NewOrder(Buy, 1, big.NewInt(50_000), time.Unix(1, 0))
	want := new(big.Int).Mul(big.NewInt(50_000), big.NewInt(100_000_000))
	require.Equal(t, want, o.WeiPerBTC())
}

func TestPositionString(t *testing.T) {
	require.Equal(t, "buy", Buy.String())
	require.Equal(t, "sell", Sell.String())
}
