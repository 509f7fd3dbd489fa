package orderbook

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
)

type Side int
type OrderType int
type Status int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide parses the wire form produced by Side.String.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, errors.Errorf("orderbook: bad side %q", s)
	}
}

const (
	Market OrderType = iota
	Limit
	IOC
	FOK
	MOC
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case MOC:
		return "MOC"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderType parses the wire form produced by OrderType.String.
func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "MARKET":
		return Market, nil
	case "LIMIT":
		return Limit, nil
	case "IOC":
		return IOC, nil
	case "FOK":
		return FOK, nil
	case "MOC":
		return MOC, nil
	default:
		return 0, errors.Errorf("orderbook: bad order type %q", s)
	}
}

const (
	Active Status = iota
	Inactive
)

// Order is a single resting or incoming order. While active it is owned
// exclusively by the price level that holds it; once removed it is immutable
// history kept for queries and event emission.
type Order struct {
	ID     uint64
	Trader asset.Account
	Side   Side
	Type   OrderType
	Price  decimal.Decimal
	Amount decimal.Decimal
	Filled decimal.Decimal
	Status Status

	// Reserved tracks the portion of the trader's locked funds (quote for
	// buys, base for sells) not yet consumed by fills. Mutated only by the
	// settlement path.
	Reserved decimal.Decimal

	next *Order
	prev *Order
}

func (o *Order) Remaining() decimal.Decimal { return o.Amount.Sub(o.Filled) }

func (o *Order) IsActive() bool { return o.Status == Active }

// Snapshot returns a detached copy safe to hand outside the book.
func (o *Order) Snapshot() Order {
	c := *o
	c.next = nil
	c.prev = nil
	return c
}
