// Package service wires the matching core together: it is the ONLY write
// entry point into the books and the ledger. All coordination between
// domain (orderbook, ledger), the event journal and metrics happens here,
// under one lock, so every order-affecting operation resolves fully before
// the next begins.
package service

import (
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sedoy107/iot-dex/domain/asset"
	"github.com/sedoy107/iot-dex/domain/event"
	"github.com/sedoy107/iot-dex/domain/ledger"
	"github.com/sedoy107/iot-dex/domain/orderbook"
	"github.com/sedoy107/iot-dex/infra/metrics"
	"github.com/sedoy107/iot-dex/infra/sequence"
)

// Sink receives every emitted event, in order. The journal adapter
// implements it; tests can capture with a slice.
type Sink interface {
	Publish(ev event.Event) error
}

// TradeTick is the market-data view of one fill leg.
type TradeTick struct {
	Pair      string              `json:"pair"`
	Price     decimal.Decimal     `json:"price"`
	Qty       decimal.Decimal     `json:"qty"`
	TakerSide orderbook.Side      `json:"takerSide"`
	TakerType orderbook.OrderType `json:"takerType"`
	Time      time.Time           `json:"ts"`
}

// TradeFeed publishes ticks to the market-data stream.
type TradeFeed interface {
	Publish(t TradeTick) error
}

// Options carries the optional collaborators. Nil fields are disabled.
type Options struct {
	Logger  *zap.Logger
	Events  Sink
	Trades  TradeFeed
	Metrics *metrics.Metrics
}

// Exchange holds the registry of tokens and pairs, one book per pair, the
// balance ledger and the order id sequencer.
type Exchange struct {
	mu sync.Mutex

	owner  asset.Account
	tokens map[asset.Ticker]struct{}
	books  map[asset.Pair]*orderbook.Book

	ledger *ledger.Ledger
	seq    *sequence.Sequencer

	log     *zap.Logger
	sink    Sink
	feed    TradeFeed
	metrics *metrics.Metrics
}

func New(owner asset.Account, opts Options) *Exchange {
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Exchange{
		owner:   owner,
		tokens:  make(map[asset.Ticker]struct{}),
		books:   make(map[asset.Pair]*orderbook.Book),
		ledger:  ledger.New(),
		seq:     sequence.New(0),
		log:     lg.Named("exchange"),
		sink:    opts.Events,
		feed:    opts.Trades,
		metrics: opts.Metrics,
	}
}

// -------------------- Admin --------------------

// AddToken registers an asset. Owner only.
func (x *Exchange) AddToken(caller asset.Account, t asset.Ticker) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if caller != x.owner {
		return errors.Wrapf(ErrUnauthorized, "addToken %s by %s", t, caller)
	}
	if _, ok := x.tokens[t]; ok {
		return errors.Wrapf(ErrTokenExists, "%s", t)
	}
	x.tokens[t] = struct{}{}
	x.log.Info("token registered", zap.String("ticker", t.String()))
	return nil
}

// AddPair registers a trading pair over two known tokens and opens its book.
// Owner only.
func (x *Exchange) AddPair(caller asset.Account, base, quote asset.Ticker) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if caller != x.owner {
		return errors.Wrapf(ErrUnauthorized, "addPair %s/%s by %s", base, quote, caller)
	}
	if base == quote {
		return errors.Wrapf(ErrBadPair, "%s/%s", base, quote)
	}
	for _, t := range []asset.Ticker{base, quote} {
		if _, ok := x.tokens[t]; !ok {
			return errors.Wrapf(ErrUnknownToken, "%s", t)
		}
	}
	pair := asset.NewPair(base, quote)
	if _, ok := x.books[pair]; ok {
		return errors.Wrapf(ErrPairExists, "%s", pair)
	}
	x.books[pair] = orderbook.NewBook(pair)
	x.log.Info("pair registered", zap.String("pair", pair.String()))
	return nil
}

// -------------------- Wallet --------------------

// Deposit credits an account with a registered token.
func (x *Exchange) Deposit(a asset.Account, t asset.Ticker, amt decimal.Decimal) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.tokens[t]; !ok {
		return errors.Wrapf(ErrUnknownToken, "%s", t)
	}
	return x.ledger.Credit(a, t, amt)
}

// Withdraw debits available funds; funds reserved by resting orders stay
// locked until the order is filled or cancelled.
func (x *Exchange) Withdraw(a asset.Account, t asset.Ticker, amt decimal.Decimal) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.tokens[t]; !ok {
		return errors.Wrapf(ErrUnknownToken, "%s", t)
	}
	return x.ledger.Debit(a, t, amt)
}

func (x *Exchange) Balance(a asset.Account, t asset.Ticker) decimal.Decimal {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.Balance(a, t)
}

func (x *Exchange) Available(a asset.Account, t asset.Ticker) decimal.Decimal {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.Available(a, t)
}

// TotalSupply sums all balances of one asset across accounts.
func (x *Exchange) TotalSupply(t asset.Ticker) decimal.Decimal {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.TotalSupply(t)
}

// -------------------- Commands --------------------

// CreateOrder validates, locks funds, admits and fully resolves a new order:
// all fills, the resting decision and all events happen before it returns.
// On any error no state changes and no events are emitted.
func (x *Exchange) CreateOrder(
	trader asset.Account,
	side orderbook.Side,
	otype orderbook.OrderType,
	pair asset.Pair,
	price decimal.Decimal,
	amount decimal.Decimal,
) (orderbook.Order, []event.Event, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	book, ok := x.books[pair]
	if !ok {
		x.metrics.Reject("unknown_pair")
		return orderbook.Order{}, nil, errors.Wrapf(ErrUnknownPair, "%s", pair)
	}
	if otype == orderbook.Market {
		price = decimal.Zero
	}
	if err := validateSize(otype, price, amount); err != nil {
		x.metrics.Reject("below_minimum")
		return orderbook.Order{}, nil, err
	}
	if otype == orderbook.Market && book.Empty(side.Opposite()) {
		x.metrics.Reject("empty_market")
		return orderbook.Order{}, nil, errors.Wrapf(orderbook.ErrEmptyMarket, "%s %s", side, pair)
	}

	lockTicker, lockAmt := x.lockFor(book, pair, side, otype, price, amount)
	if err := x.ledger.Reserve(trader, lockTicker, lockAmt); err != nil {
		x.metrics.Reject("insufficient_funds")
		return orderbook.Order{}, nil, errors.Wrapf(err, "%s %s %s", trader, side, pair)
	}

	o := &orderbook.Order{
		ID:       x.seq.Next(),
		Trader:   trader,
		Side:     side,
		Type:     otype,
		Price:    price,
		Amount:   amount,
		Filled:   decimal.Zero,
		Status:   orderbook.Active,
		Reserved: lockAmt,
	}

	pairStr := pair.String()
	evs := []event.Event{event.OrderCreated{
		ID: o.ID, Trader: o.Trader, Pair: pairStr,
		Side: o.Side, Type: o.Type, Price: o.Price, Amount: o.Amount,
	}}
	var ticks []TradeTick

	outcome := book.Submit(o, func(taker, maker *orderbook.Order, qty, px decimal.Decimal) {
		evs = x.settleFill(pair, taker, maker, qty, px, evs)
		ticks = append(ticks, TradeTick{
			Pair: pairStr, Price: px, Qty: qty,
			TakerSide: taker.Side, TakerType: taker.Type, Time: time.Now().UTC(),
		})
	})

	if outcome != orderbook.Rested {
		x.releaseRemainder(pair, o)
		evs = append(evs, removedEvent(pairStr, o))
	}

	x.metrics.Order(o.Type.String(), o.Side.String())
	if outcome == orderbook.Rejected {
		x.metrics.Reject("policy")
	}
	x.updateDepth(book)
	x.emit(evs)
	x.publishTicks(ticks)

	x.log.Debug("order resolved",
		zap.Uint64("id", o.ID),
		zap.String("pair", pairStr),
		zap.String("side", o.Side.String()),
		zap.String("type", o.Type.String()),
		zap.String("filled", o.Filled.String()),
		zap.Int("outcome", int(outcome)),
	)
	return o.Snapshot(), evs, nil
}

// CancelOrder synchronously removes an active resting order and releases its
// remaining reservation.
func (x *Exchange) CancelOrder(id uint64, side orderbook.Side, pair asset.Pair) (orderbook.Order, []event.Event, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	book, ok := x.books[pair]
	if !ok {
		return orderbook.Order{}, nil, errors.Wrapf(ErrUnknownPair, "%s", pair)
	}
	o, err := book.Cancel(id, side)
	if err != nil {
		return orderbook.Order{}, nil, errors.Wrapf(err, "cancel %d %s %s", id, side, pair)
	}
	x.releaseRemainder(pair, o)

	evs := []event.Event{removedEvent(pair.String(), o)}
	x.metrics.Cancel()
	x.updateDepth(book)
	x.emit(evs)

	x.log.Debug("order cancelled",
		zap.Uint64("id", id),
		zap.String("pair", pair.String()),
		zap.String("filled", o.Filled.String()),
	)
	return o.Snapshot(), evs, nil
}

// -------------------- Queries --------------------

// GetOrderBook returns the active orders on one side, ordered from worst
// price to best (callers read top of book at the end of the slice).
func (x *Exchange) GetOrderBook(side orderbook.Side, pair asset.Pair) ([]orderbook.Order, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	book, ok := x.books[pair]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPair, "%s", pair)
	}
	return slices.Collect(book.Orders(side)), nil
}

// GetMarketPrice returns the best price on the given side.
func (x *Exchange) GetMarketPrice(side orderbook.Side, pair asset.Pair) (decimal.Decimal, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	book, ok := x.books[pair]
	if !ok {
		return decimal.Decimal{}, errors.Wrapf(ErrUnknownPair, "%s", pair)
	}
	return book.MarketPrice(side)
}

// GetOrder returns an order by id and side, including removed orders.
func (x *Exchange) GetOrder(id uint64, side orderbook.Side, pair asset.Pair) (orderbook.Order, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	book, ok := x.books[pair]
	if !ok {
		return orderbook.Order{}, errors.Wrapf(ErrUnknownPair, "%s", pair)
	}
	return book.Get(id, side)
}

// -------------------- Settlement --------------------

// settleFill moves funds for one leg: the buyer pays the truncated quote
// cost and receives the base quantity; reservations are drawn down so that
// a fully filled order ends with zero reserved.
func (x *Exchange) settleFill(
	pair asset.Pair,
	taker, maker *orderbook.Order,
	qty, px decimal.Decimal,
	evs []event.Event,
) []event.Event {
	buyer, seller := taker, maker
	if taker.Side == orderbook.Sell {
		buyer, seller = maker, taker
	}

	cost := orderbook.QuoteCost(qty, px)

	// Buyer side: while a market taker is still matching its price is zero
	// and its pre-walk reservation is drawn down by the exact leg cost;
	// otherwise the reservation is re-priced at the buyer's own limit and
	// the surplus from price improvement is released immediately.
	var release decimal.Decimal
	if buyer.Type == orderbook.Market && buyer.Price.IsZero() {
		release = cost
	} else {
		release = buyer.Reserved.Sub(orderbook.QuoteCost(buyer.Remaining(), buyer.Price))
	}
	buyer.Reserved = buyer.Reserved.Sub(release)
	x.ledger.Release(buyer.Trader, pair.Quote, release)
	x.ledger.Settle(buyer.Trader, seller.Trader, pair.Quote, cost)

	seller.Reserved = seller.Reserved.Sub(qty)
	x.ledger.Release(seller.Trader, pair.Base, qty)
	x.ledger.Settle(seller.Trader, buyer.Trader, pair.Base, qty)

	pairStr := pair.String()
	evs = append(evs,
		event.OrderFilled{ID: maker.ID, Trader: maker.Trader, Pair: pairStr, Price: px, Qty: qty},
		event.OrderFilled{ID: taker.ID, Trader: taker.Trader, Pair: pairStr, Price: px, Qty: qty},
	)
	x.metrics.Fill()

	if maker.Remaining().IsZero() {
		x.releaseRemainder(pair, maker)
		evs = append(evs, removedEvent(pairStr, maker))
	}
	return evs
}

// releaseRemainder returns an order's unused reservation to its trader.
func (x *Exchange) releaseRemainder(pair asset.Pair, o *orderbook.Order) {
	if o.Reserved.Sign() <= 0 {
		return
	}
	t := pair.Quote
	if o.Side == orderbook.Sell {
		t = pair.Base
	}
	x.ledger.Release(o.Trader, t, o.Reserved)
	o.Reserved = decimal.Zero
}

// lockFor computes the asset and worst-case amount to reserve for an order.
func (x *Exchange) lockFor(
	book *orderbook.Book,
	pair asset.Pair,
	side orderbook.Side,
	otype orderbook.OrderType,
	price, amount decimal.Decimal,
) (asset.Ticker, decimal.Decimal) {
	if side == orderbook.Sell {
		return pair.Base, amount
	}
	if otype == orderbook.Market {
		cost, _ := book.WorstCaseQuoteCost(amount) // opposite side checked non-empty
		return pair.Quote, cost
	}
	return pair.Quote, orderbook.QuoteCost(amount, price)
}

func validateSize(otype orderbook.OrderType, price, amount decimal.Decimal) error {
	if amount.LessThan(orderbook.MinAmount) {
		return errors.Wrapf(ErrBelowMinimum, "amount %s", amount)
	}
	if otype != orderbook.Market && price.LessThan(orderbook.MinAmount) {
		return errors.Wrapf(ErrBelowMinimum, "price %s", price)
	}
	return nil
}

func removedEvent(pairStr string, o *orderbook.Order) event.OrderRemoved {
	return event.OrderRemoved{
		ID: o.ID, Trader: o.Trader, Pair: pairStr,
		Side: o.Side, Type: o.Type,
		Price: o.Price, Amount: o.Amount, Filled: o.Filled,
	}
}

func (x *Exchange) emit(evs []event.Event) {
	if x.sink == nil {
		return
	}
	for _, ev := range evs {
		if err := x.sink.Publish(ev); err != nil {
			// The in-memory log returned to the caller stays authoritative;
			// the journal drainer re-reads from its own durable state.
			x.log.Error("event publish failed", zap.String("event", ev.Name()), zap.Error(err))
		}
	}
}

func (x *Exchange) publishTicks(ticks []TradeTick) {
	if x.feed == nil {
		return
	}
	for _, t := range ticks {
		if err := x.feed.Publish(t); err != nil {
			x.log.Error("trade tick publish failed", zap.String("pair", t.Pair), zap.Error(err))
		}
	}
}

func (x *Exchange) updateDepth(book *orderbook.Book) {
	x.metrics.Depth(book.Pair.String(), "buy", book.Depth(orderbook.Buy))
	x.metrics.Depth(book.Pair.String(), "sell", book.Depth(orderbook.Sell))
}
