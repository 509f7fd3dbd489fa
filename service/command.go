package service

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
	"github.com/sedoy107/iot-dex/domain/event"
	"github.com/sedoy107/iot-dex/domain/orderbook"
)

// Command op codes carried on the order ingress topic.
const (
	OpCreate = "create"
	OpCancel = "cancel"
)

// OrderCommand is the wire envelope for inbound order operations. Side and
// Type use the String() forms of the domain enums; Pair is "BASE/QUOTE".
type OrderCommand struct {
	Op     string          `json:"op"`
	Trader string          `json:"trader"`
	Pair   string          `json:"pair"`
	Side   string          `json:"side"`
	Type   string          `json:"orderType,omitempty"`
	Price  decimal.Decimal `json:"price,omitempty"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	ID     uint64          `json:"id,omitempty"` // cancel target
}

// Apply decodes and executes one command against the exchange.
func (x *Exchange) Apply(cmd OrderCommand) ([]event.Event, error) {
	pair, err := asset.ParsePair(cmd.Pair)
	if err != nil {
		return nil, errors.Wrapf(err, "command pair %q", cmd.Pair)
	}
	side, err := orderbook.ParseSide(cmd.Side)
	if err != nil {
		return nil, err
	}

	switch cmd.Op {
	case OpCreate:
		otype, err := orderbook.ParseOrderType(cmd.Type)
		if err != nil {
			return nil, err
		}
		_, evs, err := x.CreateOrder(asset.Account(cmd.Trader), side, otype, pair, cmd.Price, cmd.Amount)
		return evs, err
	case OpCancel:
		_, evs, err := x.CancelOrder(cmd.ID, side, pair)
		return evs, err
	default:
		return nil, errors.Errorf("command: bad op %q", cmd.Op)
	}
}
