// Package event defines the exchange's observable output: every mutating
// operation returns the events it produced, in emission order, so callers
// and tests can assert on them without ambient capture.
package event

import (
	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
	"github.com/sedoy107/iot-dex/domain/orderbook"
)

type Event interface {
	// Name is the stable wire identifier used by the journal and the
	// broadcaster.
	Name() string
}

// OrderCreated is emitted exactly once when an order is admitted, including
// orders that FOK/MOC policy removes immediately afterwards.
type OrderCreated struct {
	ID     uint64              `json:"id"`
	Trader asset.Account       `json:"trader"`
	Pair   string              `json:"pair"`
	Side   orderbook.Side      `json:"side"`
	Type   orderbook.OrderType `json:"orderType"`
	Price  decimal.Decimal     `json:"price"`
	Amount decimal.Decimal     `json:"amount"`
}

func (OrderCreated) Name() string { return "order_created" }

// OrderFilled is emitted once per matched leg per order: a taker crossing
// three resting orders produces three maker fills and three taker fills.
// Qty and Price are the leg's values, not cumulative.
type OrderFilled struct {
	ID     uint64          `json:"id"`
	Trader asset.Account   `json:"trader"`
	Pair   string          `json:"pair"`
	Price  decimal.Decimal `json:"price"`
	Qty    decimal.Decimal `json:"filled"`
}

func (OrderFilled) Name() string { return "order_filled" }

// OrderRemoved is emitted exactly once when an order permanently leaves the
// book: full fill, cancel, dust discard, IOC remainder, or FOK/MOC
// rejection. Filled is cumulative at removal time.
type OrderRemoved struct {
	ID     uint64              `json:"id"`
	Trader asset.Account       `json:"trader"`
	Pair   string              `json:"pair"`
	Side   orderbook.Side      `json:"side"`
	Type   orderbook.OrderType `json:"orderType"`
	Price  decimal.Decimal     `json:"price"`
	Amount decimal.Decimal     `json:"amount"`
	Filled decimal.Decimal     `json:"filled"`
}

func (OrderRemoved) Name() string { return "order_removed" }
