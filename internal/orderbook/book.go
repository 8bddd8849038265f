package orderbook

import (
	"sync"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned by Get/Remove for an unknown order ID.
type ErrOrderNotFound struct{ ID uuid.UUID }

func (e ErrOrderNotFound) Error() string { return "orderbook: order " + e.ID.String() + " not found" }

// Book is an in-memory, mutex-guarded store of standing orders. It has no
// persistence: a restart clears the book, which is acceptable since
// orders are re-advertised by the maker on startup (spec.md's Non-goal on
// price discovery excludes any requirement to survive a restart).
type Book struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

// NewBook returns an empty order book.
func NewBook() *Book {
	return &Book{orders: make(map[uuid.UUID]Order)}
}

// Add stores o, keyed by its ID.
func (b *Book) Add(o Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ID] = o
}

// Remove deletes the order with the given ID, e.g. once it is taken or
// the maker cancels it.
func (b *Book) Remove(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[id]; !ok {
		return ErrOrderNotFound{ID: id}
	}
	delete(b.orders, id)
	return nil
}

// Get looks up a single order by ID.
func (b *Book) Get(id uuid.UUID) (Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound{ID: id}
	}
	return o, nil
}

// List returns every order currently in the book, in no particular
// order. Callers that want a specific ordering (e.g. by price) sort the
// result themselves — the book does not implement matching or ranking.
func (b *Book) List() []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out
}

// ListByPosition filters List to a single side of the book.
func (b *Book) ListByPosition(pos Position) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Order
	for _, o := range b.orders {
		if o.Position == pos {
			out = append(out, o)
		}
	}
	return out
}
