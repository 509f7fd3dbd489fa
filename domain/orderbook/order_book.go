// Package orderbook holds the per-pair book: two price-indexed trees of FIFO
// levels, the matching walk and the order-type policy. The package is pure
// data structure and matching logic; balances and events are the caller's
// concern, surfaced through the fill callback.
package orderbook

import (
	"iter"

	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
)

// Book is the order book for a single trading pair. It is not safe for
// concurrent use; the owning service serializes access.
type Book struct {
	Pair asset.Pair

	bids *RBTree
	asks *RBTree

	// orders holds every order ever admitted, active or not. Removed orders
	// stay queryable as immutable history.
	orders map[uint64]*Order
}

func NewBook(pair asset.Pair) *Book {
	return &Book{
		Pair:   pair,
		bids:   NewRBTree(),
		asks:   NewRBTree(),
		orders: make(map[uint64]*Order),
	}
}

func (b *Book) tree(side Side) *RBTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// bestLevel returns the level an incoming order on the opposite side would
// hit first: highest bid, lowest ask.
func (b *Book) bestLevel(side Side) *PriceLevel {
	if side == Buy {
		return b.bids.MaxLevel()
	}
	return b.asks.MinLevel()
}

// Empty reports whether a side has no resting orders.
func (b *Book) Empty(side Side) bool {
	return b.tree(side).Size() == 0
}

// Depth returns the number of resting orders on a side.
func (b *Book) Depth(side Side) int {
	n := 0
	b.tree(side).ForEachAscending(func(lvl *PriceLevel) bool {
		n += lvl.OrderCount
		return true
	})
	return n
}

// MarketPrice returns the price of the best order on the given side.
func (b *Book) MarketPrice(side Side) (decimal.Decimal, error) {
	lvl := b.bestLevel(side)
	if lvl == nil {
		return decimal.Decimal{}, ErrEmptyBook
	}
	return lvl.Price, nil
}

// Get returns a snapshot of the order with the given id on the given side,
// including removed orders.
func (b *Book) Get(id uint64, side Side) (Order, error) {
	o, ok := b.orders[id]
	if !ok || o.Side != side {
		return Order{}, ErrOrderNotFound
	}
	return o.Snapshot(), nil
}

// Cancel removes an active resting order from the book. The returned order
// is the live record after deactivation; the caller releases its remaining
// reservation and emits the removal.
func (b *Book) Cancel(id uint64, side Side) (*Order, error) {
	o, ok := b.orders[id]
	if !ok || o.Side != side {
		return nil, ErrOrderNotFound
	}
	if o.Status != Active {
		return nil, ErrAlreadyInactive
	}
	lvl := b.tree(o.Side).FindLevel(o.Price)
	if lvl == nil {
		panic("orderbook: active order without price level")
	}
	o.Status = Inactive
	b.removeFromLevel(o, lvl, o.Side)
	return o, nil
}

// Orders yields a snapshot of the active orders on a side, ordered from
// worst price to best (the last element is top of book), FIFO within a
// level. The sequence is restartable; each restart re-reads the live book.
func (b *Book) Orders(side Side) iter.Seq[Order] {
	return func(yield func(Order) bool) {
		visit := func(lvl *PriceLevel) bool {
			for o := lvl.head; o != nil; o = o.next {
				if !yield(o.Snapshot()) {
					return false
				}
			}
			return true
		}
		if side == Buy {
			b.bids.ForEachAscending(visit)
		} else {
			b.asks.ForEachDescending(visit)
		}
	}
}

func (b *Book) enqueue(o *Order) {
	b.tree(o.Side).UpsertLevel(o.Price).Enqueue(o)
}

func (b *Book) removeFromLevel(o *Order, lvl *PriceLevel, side Side) {
	lvl.unlink(o)
	if lvl.head == nil {
		b.tree(side).DeleteLevel(lvl.Price)
	}
}
