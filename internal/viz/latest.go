// SPDX-License-Identifier: MIT
package viz

import "sync/atomic"

// Latest is a single-slot, latest-wins handoff between one producer and one
// consumer. Publish never blocks: a frame the consumer has not taken yet is
// simply replaced. TryTake never blocks: it returns the most recent frame
// exactly once, or nil when nothing new has been published since the last
// take. With no consumer attached, frames are dropped silently.
type Latest struct {
	slot      atomic.Pointer[Frame]
	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewLatest returns an empty slot.
func NewLatest() *Latest {
	return &Latest{}
}

// Publish makes f the current frame, discarding any unconsumed predecessor.
func (l *Latest) Publish(f *Frame) {
	if f == nil {
		return
	}
	if prev := l.slot.Swap(f); prev != nil {
		l.dropped.Add(1)
	}
	l.published.Add(1)
}

// TryTake removes and returns the current frame, or nil if none has been
// published since the previous take.
func (l *Latest) TryTake() *Frame {
	return l.slot.Swap(nil)
}

// Published reports the total number of frames published.
func (l *Latest) Published() uint64 { return l.published.Load() }

// Dropped reports how many frames were overwritten before being consumed.
func (l *Latest) Dropped() uint64 { return l.dropped.Load() }
