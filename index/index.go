package index

import "context"

// Document is one indexed transcript. ID is the call_id and is unique
// within a collection.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Vector   []float32      `json:"embedding"`
}

// Match is a query hit. Distance is non-negative and smaller is closer.
type Match struct {
	ID       string         `json:"id"`
	Text     string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

type Index interface {
	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs []Document) error
	// Query returns at most k matches ordered by ascending distance.
	Query(ctx context.Context, vector []float32, k int, opts ...QueryOption) ([]Match, error)
	Count(ctx context.Context) (int, error)
}
