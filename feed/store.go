package feed

import "context"

// Subscription is the handle for one live insert stream. Unsubscribe must
// release the stream so no further events reach the handler.
type Subscription interface {
	Unsubscribe()
}

// Store is the product data store at its interface: a one-shot snapshot
// query plus a push-based insert stream, both scoped to one run.
type Store interface {
	// LoadSnapshot returns every product already recorded for the run.
	LoadSnapshot(ctx context.Context, runID string) ([]Product, error)
	// SubscribeInserts delivers each product inserted for the run, in
	// arrival order, until the subscription is released.
	SubscribeInserts(ctx context.Context, runID string, fn func(Product)) (Subscription, error)
}
