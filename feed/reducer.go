package feed

import (
	"context"
	"fmt"
	"sync"
)

// ErrSnapshotFailed marks a failed initial load. The live subscription still
// runs; the feed degrades to live-only instead of failing the session.
var ErrSnapshotFailed = fmt.Errorf("product snapshot load failed")

// Reducer reduces the snapshot and insert stream for one run into a single
// display-ordered product list: newest first, unique by id, append-only for
// the life of the session.
type Reducer struct {
	// OnAdmit fires for every product newly admitted from the live stream.
	// Set before Follow.
	OnAdmit func(Product)

	store Store

	mu       sync.Mutex
	runID    string
	products []Product
	seen     map[string]struct{}
	sub      Subscription
	closed   bool
}

func NewReducer(store Store) *Reducer {
	return &Reducer{
		store: store,
		seen:  make(map[string]struct{}),
	}
}

// Follow scopes the reducer to a run: it discards any prior subscription and
// state, subscribes to the insert stream, then merges the snapshot. The
// subscription is opened first so nothing inserted during the snapshot fetch
// is lost; the id set absorbs the overlap.
//
// A snapshot failure is returned as ErrSnapshotFailed but leaves the live
// subscription in place.
func (r *Reducer) Follow(ctx context.Context, runID string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("reducer is closed")
	}
	if r.sub != nil {
		r.sub.Unsubscribe()
		r.sub = nil
	}
	r.runID = runID
	r.products = nil
	r.seen = make(map[string]struct{})
	r.mu.Unlock()

	sub, err := r.store.SubscribeInserts(ctx, runID, r.onInsert)
	if err != nil {
		return fmt.Errorf("subscribing to product inserts: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		sub.Unsubscribe()
		return fmt.Errorf("reducer is closed")
	}
	r.sub = sub
	r.mu.Unlock()

	snapshot, err := r.store.LoadSnapshot(ctx, runID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
	}

	r.mu.Lock()
	for _, p := range snapshot {
		if _, dup := r.seen[p.ID]; dup {
			continue
		}
		r.seen[p.ID] = struct{}{}
		// Snapshot rows order behind anything already streamed in.
		r.products = append(r.products, p)
	}
	r.mu.Unlock()

	return nil
}

// onInsert admits one streamed product: duplicates by id are ignored, new
// products are prepended so the most recent detection shows first.
func (r *Reducer) onInsert(p Product) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, dup := r.seen[p.ID]; dup {
		r.mu.Unlock()
		return
	}
	r.seen[p.ID] = struct{}{}
	r.products = append([]Product{p}, r.products...)
	fn := r.OnAdmit
	r.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

// Products returns a copy of the current feed, newest first.
func (r *Reducer) Products() []Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Product, len(r.products))
	copy(out, r.products)
	return out
}

// Len returns the number of admitted products.
func (r *Reducer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

// Close releases the live subscription. Inserts arriving afterwards mutate
// nothing.
func (r *Reducer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
