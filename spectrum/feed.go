package spectrum

import (
	"context"
	"sync"
	"sync/atomic"
)

// Feed hands the newest Snapshot to a single consumer. Publishing never
// blocks: an unconsumed snapshot is replaced and counted as dropped.
type Feed struct {
	mu    sync.Mutex
	slot  chan Snapshot
	drops atomic.Uint64
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{slot: make(chan Snapshot, 1)}
}

// Publish stores snap, replacing any snapshot not yet taken.
func (f *Feed) Publish(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.slot:
		f.drops.Add(1)
	default:
	}
	// Only Publish sends, under mu, so the slot is empty here.
	f.slot <- snap
}

// Next blocks until a snapshot is available or ctx is done.
func (f *Feed) Next(ctx context.Context) (Snapshot, error) {
	select {
	case snap := <-f.slot:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// TryNext returns the pending snapshot, if any, without blocking.
func (f *Feed) TryNext() (Snapshot, bool) {
	select {
	case snap := <-f.slot:
		return snap, true
	default:
		return Snapshot{}, false
	}
}

// Drops returns how many snapshots were replaced before being taken.
func (f *Feed) Drops() uint64 {
	return f.drops.Load()
}
