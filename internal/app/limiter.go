package app

import "sync/atomic"

// slotLimiter bounds the number of live clients. Uses atomic operations for lock-free counting.
type slotLimiter struct {
	current atomic.Int64
	max     int64
}

func newSlotLimiter(max int64) *slotLimiter {
	return &slotLimiter{max: max}
}

// Acquire attempts to take a slot. Returns false if at capacity.
func (l *slotLimiter) Acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *slotLimiter) Release() {
	l.current.Add(-1)
}

func (l *slotLimiter) Current() int64 {
	return l.current.Load()
}

func (l *slotLimiter) Max() int64 {
	return l.max
}
