package orderbook

import "github.com/shopspring/decimal"

// Outcome is the terminal state of a submitted order.
type Outcome int

const (
	// Rested: a residual (or the whole order, for MOC) was inserted.
	Rested Outcome = iota
	// Filled: the order matched its full amount.
	Filled
	// Discarded: an unfilled remainder was dropped (IOC remainder, or a
	// residual below MinAmount).
	Discarded
	// Rejected: FOK that could not fully fill, or MOC that would cross.
	// Zero fills by construction.
	Rejected
)

// FillFunc observes each fill leg. It runs after both orders' Filled fields
// have been advanced and before a fully-filled maker is unlinked, so
// Remaining reflects the post-fill state.
type FillFunc func(taker, maker *Order, qty, price decimal.Decimal)

// Submit admits an order and resolves it fully according to its type policy.
// The caller has already validated the order and locked its funds. After
// Submit returns, the order is either resting (Status Active) or terminal
// (Status Inactive); it is registered in the book's history either way.
func (b *Book) Submit(o *Order, onFill FillFunc) Outcome {
	b.orders[o.ID] = o

	switch o.Type {
	case MOC:
		if b.wouldCross(o) {
			o.Status = Inactive
			return Rejected
		}
		b.enqueue(o)
		return Rested

	case FOK:
		if !b.canFill(o.Side, o.Price, o.Remaining()) {
			o.Status = Inactive
			return Rejected
		}
		b.matchLoop(o, onFill)
		o.Status = Inactive
		return Filled

	case IOC:
		b.matchLoop(o, onFill)
		if o.Remaining().IsZero() {
			o.Status = Inactive
			return Filled
		}
		o.Status = Inactive
		return Discarded

	case Market:
		last := b.matchLoop(o, onFill)
		rem := o.Remaining()
		if rem.IsZero() {
			o.Status = Inactive
			return Filled
		}
		// Residual pegs to the last execution price and rests as a de
		// facto limit order at that price, keeping its MARKET type.
		if rem.GreaterThanOrEqual(MinAmount) && last.Sign() > 0 {
			o.Price = last
			b.enqueue(o)
			return Rested
		}
		o.Status = Inactive
		return Discarded

	default: // Limit
		b.matchLoop(o, onFill)
		rem := o.Remaining()
		switch {
		case rem.IsZero():
			o.Status = Inactive
			return Filled
		case rem.GreaterThanOrEqual(MinAmount):
			b.enqueue(o)
			return Rested
		default:
			o.Status = Inactive
			return Discarded
		}
	}
}

// matchLoop walks the opposite side best-first, filling
// min(taker remaining, maker remaining) at the maker's price until the taker
// is done, the side empties, or the price condition stops holding. Returns
// the last execution price (zero if nothing matched).
func (b *Book) matchLoop(o *Order, onFill FillFunc) decimal.Decimal {
	opp := o.Side.Opposite()
	last := decimal.Zero
	for o.Remaining().Sign() > 0 {
		best := b.bestLevel(opp)
		if best == nil {
			break
		}
		if o.Type != Market {
			if o.Side == Buy && best.Price.GreaterThan(o.Price) {
				break
			}
			if o.Side == Sell && best.Price.LessThan(o.Price) {
				break
			}
		}

		maker := best.head
		qty := decimal.Min(o.Remaining(), maker.Remaining())
		o.Filled = o.Filled.Add(qty)
		maker.Filled = maker.Filled.Add(qty)
		best.drain(qty)
		last = best.Price

		if onFill != nil {
			onFill(o, maker, qty, best.Price)
		}

		if maker.Remaining().IsZero() {
			maker.Status = Inactive
			b.removeFromLevel(maker, best, opp)
		}
	}
	return last
}

// wouldCross reports whether a passive insert at o.Price would match
// immediately against the opposite side.
func (b *Book) wouldCross(o *Order) bool {
	best := b.bestLevel(o.Side.Opposite())
	if best == nil {
		return false
	}
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(best.Price)
	}
	return o.Price.LessThanOrEqual(best.Price)
}

// canFill is the non-mutating FOK pre-walk: can `amount` be fully matched at
// prices no worse than `limit`?
func (b *Book) canFill(side Side, limit, amount decimal.Decimal) bool {
	need := amount
	visit := func(lvl *PriceLevel) bool {
		if side == Buy && lvl.Price.GreaterThan(limit) {
			return false
		}
		if side == Sell && lvl.Price.LessThan(limit) {
			return false
		}
		need = need.Sub(lvl.TotalQty)
		return need.Sign() > 0
	}
	if side == Buy {
		b.asks.ForEachAscending(visit)
	} else {
		b.bids.ForEachDescending(visit)
	}
	return need.Sign() <= 0
}

// WorstCaseQuoteCost prices a market buy of `amount` against the current ask
// side without mutating it: the sum of per-fill truncated costs, plus the
// residual priced at the last touched level (where it would rest). The
// second return is false when the ask side is empty.
func (b *Book) WorstCaseQuoteCost(amount decimal.Decimal) (decimal.Decimal, bool) {
	if b.Empty(Sell) {
		return decimal.Decimal{}, false
	}
	need := amount
	cost := decimal.Zero
	last := decimal.Zero
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		for o := lvl.head; o != nil && need.Sign() > 0; o = o.next {
			q := decimal.Min(need, o.Remaining())
			cost = cost.Add(QuoteCost(q, lvl.Price))
			need = need.Sub(q)
		}
		last = lvl.Price
		return need.Sign() > 0
	})
	if need.Sign() > 0 {
		cost = cost.Add(QuoteCost(need, last))
	}
	return cost, true
}
