// Package ledger keeps per-account, per-asset balances and the reservations
// that back resting orders. Funds move in three steps: Reserve locks the
// worst-case cost at order admission, Release returns unused locks, and
// Settle moves settled value between accounts.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
)

var (
	// ErrInsufficientFunds is returned when a debit or reservation exceeds
	// the account's available (unreserved) balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrBadAmount is returned for zero or negative credit/debit/reserve
	// amounts.
	ErrBadAmount = errors.New("ledger: amount must be positive")
)

type key struct {
	account asset.Account
	ticker  asset.Ticker
}

// Ledger is not safe for concurrent use; the owning service serializes
// access together with the books it settles against.
type Ledger struct {
	balances map[key]decimal.Decimal
	reserved map[key]decimal.Decimal
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[key]decimal.Decimal),
		reserved: make(map[key]decimal.Decimal),
	}
}

// Balance returns the total balance, reserved funds included.
func (l *Ledger) Balance(a asset.Account, t asset.Ticker) decimal.Decimal {
	return l.balances[key{a, t}]
}

// Reserved returns the currently locked portion of the balance.
func (l *Ledger) Reserved(a asset.Account, t asset.Ticker) decimal.Decimal {
	return l.reserved[key{a, t}]
}

// Available returns the spendable balance: total minus reserved.
func (l *Ledger) Available(a asset.Account, t asset.Ticker) decimal.Decimal {
	k := key{a, t}
	return l.balances[k].Sub(l.reserved[k])
}

// Credit adds funds (deposit).
func (l *Ledger) Credit(a asset.Account, t asset.Ticker, amt decimal.Decimal) error {
	if amt.Sign() <= 0 {
		return ErrBadAmount
	}
	k := key{a, t}
	l.balances[k] = l.balances[k].Add(amt)
	return nil
}

// Debit removes available funds (withdrawal). Reserved funds cannot be
// withdrawn while the orders holding them rest.
func (l *Ledger) Debit(a asset.Account, t asset.Ticker, amt decimal.Decimal) error {
	if amt.Sign() <= 0 {
		return ErrBadAmount
	}
	if l.Available(a, t).LessThan(amt) {
		return ErrInsufficientFunds
	}
	k := key{a, t}
	l.balances[k] = l.balances[k].Sub(amt)
	return nil
}

// Reserve locks available funds against an order. A failed reservation has
// no side effects.
func (l *Ledger) Reserve(a asset.Account, t asset.Ticker, amt decimal.Decimal) error {
	if amt.Sign() < 0 {
		return ErrBadAmount
	}
	if l.Available(a, t).LessThan(amt) {
		return ErrInsufficientFunds
	}
	k := key{a, t}
	l.reserved[k] = l.reserved[k].Add(amt)
	return nil
}

// Release unlocks previously reserved funds. Releasing more than is reserved
// means the engine's reservation accounting broke; that is unrecoverable.
func (l *Ledger) Release(a asset.Account, t asset.Ticker, amt decimal.Decimal) {
	if amt.Sign() == 0 {
		return
	}
	k := key{a, t}
	next := l.reserved[k].Sub(amt)
	if next.Sign() < 0 {
		panic(fmt.Sprintf("ledger: release %s exceeds reserved %s for %s/%s",
			amt, l.reserved[k], a, t))
	}
	l.reserved[k] = next
}

// Settle moves settled value between accounts. The engine releases the
// corresponding reservation first, so the sender's balance must cover the
// transfer; a shortfall is a conservation violation and unrecoverable.
func (l *Ledger) Settle(from, to asset.Account, t asset.Ticker, amt decimal.Decimal) {
	if amt.Sign() == 0 {
		return
	}
	fk := key{from, t}
	next := l.balances[fk].Sub(amt)
	if next.Sign() < 0 {
		panic(fmt.Sprintf("ledger: settle %s exceeds balance %s for %s/%s",
			amt, l.balances[fk], from, t))
	}
	l.balances[fk] = next
	tk := key{to, t}
	l.balances[tk] = l.balances[tk].Add(amt)
}

// TotalSupply sums every account's balance of one asset. Matching must keep
// it invariant.
func (l *Ledger) TotalSupply(t asset.Ticker) decimal.Decimal {
	sum := decimal.Zero
	for k, v := range l.balances {
		if k.ticker == t {
			sum = sum.Add(v)
		}
	}
	return sum
}
