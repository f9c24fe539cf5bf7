package util

import "sync/atomic"

// Sequence hands out monotonically increasing identifiers starting at zero.
// Safe for concurrent use.
type Sequence struct {
	next atomic.Uint64
}

// Next returns the next identifier
func (s *Sequence) Next() uint64 {
	return s.next.Add(1) - 1
}

// Peek returns the identifier the next call to Next will return
func (s *Sequence) Peek() uint64 {
	return s.next.Load()
}
