// Package orderbook stores maker orders and lists them for takers to
// browse, supplementing original_source/comit/src/order.rs's BtcDaiOrder
// into spec.md's swap request flow. Per spec.md's Non-goal on price
// discovery, it deliberately does not match or price orders — callers
// read the book and construct their own SwapRequest from an entry.
package orderbook

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Position is which side of the trade the maker holds, per
// comit/src/order.rs's Position.
type Position int

const (
	Buy Position = iota
	Sell
)

func (p Position) String() string {
	if p == Buy {
		return "buy"
	}
	return "sell"
}

// Order is a maker's standing offer: a quantity of Bitcoin at a price
// denominated in wei per satoshi, matching BtcDaiOrder's fields minus
// the swap-protocol expiry-offset plumbing (spec.md fixes a single
// alpha/beta pair rather than letting the order pick one).
type Order struct {
	ID        uuid.UUID
	Position  Position
	Quantity  int64 // satoshis
	Price     *big.Int // wei per satoshi
	CreatedAt time.Time
}

// WeiPerBTC converts Price (wei/sat) to wei/BTC, per BtcDaiOrder.price's
// WeiPerBtc denomination.
func (o Order) WeiPerBTC() *big.Int {
	satsPerBTC := big.NewInt(100_000_000)
	return new(big.Int).Mul(o.Price, satsPerBTC)
}

// NewOrder constructs an order with a random ID, as BtcDaiOrder::new
// does via OrderId::random.
func NewOrder(position Position, quantity int64, price *big.Int, now time.Time) Order {
	return Order{
		ID:        uuid.New(),
		Position:  position,
		Quantity:  quantity,
		Price:     price,
		CreatedAt: now,
	}
}
