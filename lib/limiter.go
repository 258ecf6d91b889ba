package lib

import (
	"context"
)

// SlotLimiter caps how many field submissions may be in flight against the
// upstream at once.
type SlotLimiter chan struct{}

// NewSlotLimiter initializes and returns a new SlotLimiter with the given
// slot count. A count of 0 or less disables the limit.
func NewSlotLimiter(slots int) SlotLimiter {
	if slots <= 0 {
		return nil
	}
	ch := make(chan struct{}, slots)
	for i := 0; i < slots; i++ {
		ch <- struct{}{}
	}
	return ch
}

// Begin takes a slot, blocking while all slots are in use. It returns the
// context error if ctx is done before a slot frees up, and is a noop on a
// nil limiter.
func (sl SlotLimiter) Begin(ctx context.Context) error {
	if sl == nil {
		return nil
	}
	select {
	case <-sl:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End restores a slot. Must be called exactly once after a successful Begin.
func (sl SlotLimiter) End() {
	if sl != nil {
		sl <- struct{}{}
	}
}
