package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
)

type fillLeg struct {
	taker, maker uint64
	qty, price   decimal.Decimal
}

func captureFills(legs *[]fillLeg) FillFunc {
	return func(taker, maker *Order, qty, price decimal.Decimal) {
		*legs = append(*legs, fillLeg{taker.ID, maker.ID, qty, price})
	}
}

func TestLimitFullMatchEmptiesBook(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Buy, Limit, tok(100), tok(5)), nil)
	out := b.Submit(newTestOrder(2, Sell, Limit, tok(100), tok(5)), nil)
	if out != Filled {
		t.Fatalf("expected Filled, got %v", out)
	}
	if b.Depth(Buy) != 0 || b.Depth(Sell) != 0 {
		t.Error("matched orders should have left the book")
	}
}

func TestLimitRestsWithoutCross(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(10), tok(1)), nil)
	out := b.Submit(newTestOrder(2, Buy, Limit, tok(9), tok(1)), nil)
	if out != Rested {
		t.Fatalf("expected Rested, got %v", out)
	}
	if b.Depth(Buy) != 1 || b.Depth(Sell) != 1 {
		t.Error("non-crossing limits should both rest")
	}
}

func TestPartialFillResidualRests(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(10)), nil)
	out := b.Submit(newTestOrder(2, Buy, Limit, tok(5), tok(4)), nil)
	if out != Filled {
		t.Fatalf("expected taker Filled, got %v", out)
	}
	maker, _ := b.Get(1, Sell)
	if !maker.Remaining().Equal(tok(6)) {
		t.Errorf("expected maker remaining 6, got %s", maker.Remaining())
	}
	if !maker.IsActive() {
		t.Error("partially filled maker should stay active")
	}
}

func TestMakerPriceExecution(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)

	var legs []fillLeg
	b.Submit(newTestOrder(2, Buy, Limit, tok(7), tok(2)), captureFills(&legs))
	if len(legs) != 1 {
		t.Fatalf("expected one fill leg, got %d", len(legs))
	}
	if !legs[0].price.Equal(tok(5)) {
		t.Errorf("execution must use the resting price, got %s", legs[0].price)
	}
}

func TestPriceTimePriority(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(6), tok(1)), nil)
	b.Submit(newTestOrder(2, Sell, Limit, tok(5), tok(1)), nil) // better price
	b.Submit(newTestOrder(3, Sell, Limit, tok(5), tok(1)), nil) // same price, later

	var legs []fillLeg
	b.Submit(newTestOrder(4, Buy, Limit, tok(6), tok(3)), captureFills(&legs))
	if len(legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(legs))
	}
	wantMakers := []uint64{2, 3, 1} // best price first, FIFO within a level
	for i, w := range wantMakers {
		if legs[i].maker != w {
			t.Fatalf("priority order wrong: got %v", legs)
		}
	}
}

func TestIOCDiscardsRemainder(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)

	o := newTestOrder(2, Buy, IOC, tok(5), tok(5))
	out := b.Submit(o, nil)
	if out != Discarded {
		t.Fatalf("expected Discarded, got %v", out)
	}
	if !o.Filled.Equal(tok(2)) {
		t.Errorf("expected 2 filled, got %s", o.Filled)
	}
	if b.Depth(Buy) != 0 {
		t.Error("IOC remainder must not rest")
	}
}

func TestIOCNoLiquidity(t *testing.T) {
	b := newTestBook()
	out := b.Submit(newTestOrder(1, Buy, IOC, tok(5), tok(5)), nil)
	if out != Discarded {
		t.Fatalf("expected Discarded, got %v", out)
	}
}

func TestFOKRejectsPartialFill(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)

	var legs []fillLeg
	o := newTestOrder(2, Buy, FOK, tok(5), tok(5))
	out := b.Submit(o, captureFills(&legs))
	if out != Rejected {
		t.Fatalf("expected Rejected, got %v", out)
	}
	if len(legs) != 0 || !o.Filled.IsZero() {
		t.Error("rejected FOK must not produce fills")
	}
	maker, _ := b.Get(1, Sell)
	if !maker.Remaining().Equal(tok(2)) {
		t.Error("rejected FOK must leave the book untouched")
	}
}

func TestFOKFillsAcrossLevels(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)
	b.Submit(newTestOrder(2, Sell, Limit, tok(6), tok(3)), nil)
	b.Submit(newTestOrder(3, Sell, Limit, tok(7), tok(4)), nil) // beyond limit

	out := b.Submit(newTestOrder(4, Buy, FOK, tok(6), tok(5)), nil)
	if out != Filled {
		t.Fatalf("expected Filled, got %v", out)
	}
	if b.Depth(Sell) != 1 {
		t.Error("only the out-of-range ask should remain")
	}
}

func TestFOKRespectsLimitDuringPreWalk(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)
	b.Submit(newTestOrder(2, Sell, Limit, tok(9), tok(5)), nil)

	// Liquidity exists, but not within the limit.
	out := b.Submit(newTestOrder(3, Buy, FOK, tok(6), tok(4)), nil)
	if out != Rejected {
		t.Fatalf("expected Rejected, got %v", out)
	}
}

func TestMOCRejectsWhenCrossing(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(1)), nil)

	o := newTestOrder(2, Buy, MOC, tok(5), tok(1))
	out := b.Submit(o, nil)
	if out != Rejected {
		t.Fatalf("expected Rejected, got %v", out)
	}
	if !o.Filled.IsZero() {
		t.Error("MOC must never fill")
	}
	if b.Depth(Buy) != 0 {
		t.Error("rejected MOC must not rest")
	}
}

func TestMOCRestsWhenPassive(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(1)), nil)

	out := b.Submit(newTestOrder(2, Buy, MOC, tok(4), tok(1)), nil)
	if out != Rested {
		t.Fatalf("expected Rested, got %v", out)
	}
	if b.Depth(Buy) != 1 {
		t.Error("passive MOC should rest like a limit order")
	}
}

func TestMarketResidualPegsToLastPrice(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(5)), nil)

	o := newTestOrder(2, Buy, Market, decimal.Zero, tok(8))
	out := b.Submit(o, nil)
	if out != Rested {
		t.Fatalf("expected Rested, got %v", out)
	}
	if !o.Price.Equal(tok(5)) {
		t.Errorf("residual must peg to last execution price, got %s", o.Price)
	}
	if o.Type != Market {
		t.Error("resting residual keeps its MARKET type")
	}
	bid, err := b.MarketPrice(Buy)
	if err != nil || !bid.Equal(tok(5)) {
		t.Error("residual should be the best bid at the pegged price")
	}

	// A later sell matches the pegged residual like a limit order.
	var legs []fillLeg
	b.Submit(newTestOrder(3, Sell, Limit, tok(5), tok(3)), captureFills(&legs))
	if len(legs) != 1 || !legs[0].price.Equal(tok(5)) {
		t.Errorf("pegged residual should match at its pegged price: %v", legs)
	}
}

func TestMarketDustResidualDiscarded(t *testing.T) {
	b := newTestBook()
	ask := decimal.NewFromInt(1_500_000_000)
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), ask), nil)

	// residual 5e8 is below MinAmount (1e9)
	o := newTestOrder(2, Buy, Market, decimal.Zero, decimal.NewFromInt(2_000_000_000))
	out := b.Submit(o, nil)
	if out != Discarded {
		t.Fatalf("expected Discarded, got %v", out)
	}
	if b.Depth(Buy) != 0 {
		t.Error("dust residual must not rest")
	}
}

func TestLimitDustResidualDiscarded(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Sell, Limit, tok(5), decimal.NewFromInt(1_500_000_000)), nil)

	o := newTestOrder(2, Buy, Limit, tok(5), decimal.NewFromInt(2_000_000_000))
	out := b.Submit(o, nil)
	if out != Discarded {
		t.Fatalf("expected Discarded, got %v", out)
	}
	if !o.Filled.Equal(decimal.NewFromInt(1_500_000_000)) {
		t.Errorf("expected fill of 1.5e9 units, got %s", o.Filled)
	}
}

func TestNoCrossedBookAfterMatching(t *testing.T) {
	b := newTestBook()
	b.Submit(newTestOrder(1, Buy, Limit, tok(4), tok(2)), nil)
	b.Submit(newTestOrder(2, Buy, Limit, tok(5), tok(2)), nil)
	b.Submit(newTestOrder(3, Sell, Limit, tok(5), tok(1)), nil)
	b.Submit(newTestOrder(4, Sell, Limit, tok(6), tok(2)), nil)

	bid, errB := b.MarketPrice(Buy)
	ask, errA := b.MarketPrice(Sell)
	if errB == nil && errA == nil && bid.GreaterThanOrEqual(ask) {
		t.Errorf("book crossed: bid %s >= ask %s", bid, ask)
	}
}

func TestWorstCaseQuoteCost(t *testing.T) {
	b := newTestBook()
	if _, ok := b.WorstCaseQuoteCost(tok(1)); ok {
		t.Fatal("expected ok=false on empty ask side")
	}

	b.Submit(newTestOrder(1, Sell, Limit, tok(5), tok(2)), nil)
	b.Submit(newTestOrder(2, Sell, Limit, tok(6), tok(3)), nil)

	cost, ok := b.WorstCaseQuoteCost(tok(4))
	if !ok {
		t.Fatal("expected ok")
	}
	// 2@5 + 2@6 = 22
	if !cost.Equal(tok(22)) {
		t.Errorf("expected cost 22, got %s", cost)
	}

	// 2@5 + 3@6 + residual 1 priced at the last touched level (6) = 34
	cost, _ = b.WorstCaseQuoteCost(tok(6))
	if !cost.Equal(tok(34)) {
		t.Errorf("expected cost 34, got %s", cost)
	}
}

func TestQuoteCostTruncates(t *testing.T) {
	// 1 smallest unit at price 0.5 tokens: 1 * 5e17 / 1e18 = 0.5 -> 0
	got := QuoteCost(decimal.NewFromInt(1), decimal.New(5, 17))
	if !got.IsZero() {
		t.Errorf("expected truncation to 0, got %s", got)
	}
	got = QuoteCost(tok(3), decimal.New(5, 17))
	if !got.Equal(decimal.New(15, 17)) {
		t.Errorf("expected 1.5 tokens, got %s", got)
	}
}
