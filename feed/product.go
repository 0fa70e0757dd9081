// Package feed maintains the display-ordered list of products detected in a
// live stream. It ingests an initial snapshot plus an append-only insert
// stream from the data store, deduplicates by id, and keeps the newest
// detection first.
package feed

// Product is one detected item. Rows are created by the inference backend
// and are immutable once delivered; there is no update or delete path.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	URL         string  `json:"url,omitempty"`
	RunID       string  `json:"run_id"`
}
