package orderbook

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when a cancel or lookup targets an id the
	// book has never admitted on that side.
	ErrOrderNotFound = errors.New("orderbook: order not found")

	// ErrAlreadyInactive is returned when cancelling an order that has
	// already been filled, cancelled or rejected. It matches ErrOrderNotFound
	// under errors.Is; callers that care can still tell the two apart.
	ErrAlreadyInactive = fmt.Errorf("%w: order already inactive", ErrOrderNotFound)

	// ErrEmptyBook is returned by market-price queries on a side with no
	// resting orders.
	ErrEmptyBook = errors.New("orderbook: no orders on side")

	// ErrEmptyMarket is returned when a market order arrives and the
	// opposite side holds no liquidity at all.
	ErrEmptyMarket = errors.New("orderbook: no opposite liquidity for market order")
)
