package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sedoy107/iot-dex/domain/asset"
)

var (
	link  = asset.MustTicker("LINK")
	alice = asset.Account("alice")
	bob   = asset.Account("bob")
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreditDebit(t *testing.T) {
	l := New()
	if err := l.Credit(alice, link, d(100)); err != nil {
		t.Fatal(err)
	}
	if !l.Balance(alice, link).Equal(d(100)) {
		t.Errorf("expected 100, got %s", l.Balance(alice, link))
	}
	if err := l.Debit(alice, link, d(30)); err != nil {
		t.Fatal(err)
	}
	if !l.Balance(alice, link).Equal(d(70)) {
		t.Errorf("expected 70, got %s", l.Balance(alice, link))
	}
}

func TestDebitInsufficient(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(10))
	if err := l.Debit(alice, link, d(11)); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestBadAmounts(t *testing.T) {
	l := New()
	if err := l.Credit(alice, link, d(0)); err != ErrBadAmount {
		t.Errorf("expected ErrBadAmount, got %v", err)
	}
	if err := l.Debit(alice, link, d(-1)); err != ErrBadAmount {
		t.Errorf("expected ErrBadAmount, got %v", err)
	}
	if err := l.Reserve(alice, link, d(-1)); err != ErrBadAmount {
		t.Errorf("expected ErrBadAmount, got %v", err)
	}
}

func TestReserveBlocksWithdrawal(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(100))
	if err := l.Reserve(alice, link, d(60)); err != nil {
		t.Fatal(err)
	}
	if !l.Available(alice, link).Equal(d(40)) {
		t.Errorf("expected available 40, got %s", l.Available(alice, link))
	}
	if err := l.Debit(alice, link, d(50)); err != ErrInsufficientFunds {
		t.Error("reserved funds must not be withdrawable")
	}
	if err := l.Debit(alice, link, d(40)); err != nil {
		t.Errorf("available funds should be withdrawable: %v", err)
	}
}

func TestReserveInsufficient(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(100))
	l.Reserve(alice, link, d(80))
	if err := l.Reserve(alice, link, d(30)); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	// failed reserve must not move anything
	if !l.Reserved(alice, link).Equal(d(80)) {
		t.Errorf("expected reserved 80, got %s", l.Reserved(alice, link))
	}
}

func TestReleaseAndSettle(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(100))
	l.Reserve(alice, link, d(60))

	l.Release(alice, link, d(60))
	if !l.Reserved(alice, link).IsZero() {
		t.Errorf("expected reserved 0, got %s", l.Reserved(alice, link))
	}

	l.Settle(alice, bob, link, d(25))
	if !l.Balance(alice, link).Equal(d(75)) || !l.Balance(bob, link).Equal(d(25)) {
		t.Error("settle moved the wrong amounts")
	}
	if !l.TotalSupply(link).Equal(d(100)) {
		t.Errorf("settle must conserve supply, got %s", l.TotalSupply(link))
	}
}

func TestReleaseOverReservedPanics(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(100))
	l.Reserve(alice, link, d(10))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on over-release")
		}
	}()
	l.Release(alice, link, d(11))
}

func TestSettleOverBalancePanics(t *testing.T) {
	l := New()
	l.Credit(alice, link, d(10))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on over-settle")
		}
	}()
	l.Settle(alice, bob, link, d(11))
}

func TestZeroReleaseAndSettleAreNoops(t *testing.T) {
	l := New()
	l.Release(alice, link, decimal.Zero)
	l.Settle(alice, bob, link, decimal.Zero)
	if !l.Balance(alice, link).IsZero() || !l.Balance(bob, link).IsZero() {
		t.Error("zero amounts must not move funds")
	}
}
