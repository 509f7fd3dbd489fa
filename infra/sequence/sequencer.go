// Package sequence issues the exchange's order and event identifiers.
package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic ids starting at the given value.
// Safe for concurrent use.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next() returns start.
// On recovery, start is the highest journaled id plus one.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1) - 1
}

// Current returns the id the next call to Next will return.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset rewinds or advances the sequencer. Only used during recovery.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
