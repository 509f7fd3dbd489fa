// Package asset defines the identifiers the exchange trades in: tickers,
// trading pairs and account identities.
package asset

import (
	"errors"
	"strings"
)

// TickerLen is the fixed width of a ticker key. Symbols longer than this are
// rejected at registration time.
const TickerLen = 8

// Ticker is a fixed-width, content-addressed asset identifier. It is
// comparable and therefore usable as a map key.
type Ticker [TickerLen]byte

var ErrBadTicker = errors.New("asset: ticker must be 1-8 ASCII characters")

// TickerFromString builds a Ticker from a symbol such as "LINK".
func TickerFromString(s string) (Ticker, error) {
	var t Ticker
	if len(s) == 0 || len(s) > TickerLen {
		return t, ErrBadTicker
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return t, ErrBadTicker
		}
	}
	copy(t[:], s)
	return t, nil
}

// MustTicker is TickerFromString for constants and tests.
func MustTicker(s string) Ticker {
	t, err := TickerFromString(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Ticker) String() string {
	return strings.TrimRight(string(t[:]), "\x00")
}

// Pair is a trading pair. Price is quoted as Quote units per one Base unit.
type Pair struct {
	Base  Ticker
	Quote Ticker
}

func NewPair(base, quote Ticker) Pair {
	return Pair{Base: base, Quote: quote}
}

func (p Pair) String() string {
	return p.Base.String() + "/" + p.Quote.String()
}

// ParsePair parses "BASE/QUOTE".
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || strings.Contains(quote, "/") {
		return Pair{}, ErrBadTicker
	}
	b, err := TickerFromString(base)
	if err != nil {
		return Pair{}, err
	}
	q, err := TickerFromString(quote)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Base: b, Quote: q}, nil
}

// Account identifies a trader. The core does not interpret it.
type Account string
