package engine

import "sync/atomic"

// Clock is the monotonic logical clock that orders processed transactions.
//
// Every transaction that reaches an instruction is stamped with the next
// value. Sequence numbers are strictly increasing but not necessarily dense:
// a transaction aborted by a storage fault consumes a number without
// recording a receipt.
//
// Clock is safe for concurrent use, though only the Run loop calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
// Used to resume after the highest recorded receipt.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
