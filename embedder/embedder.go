package embedder

import "context"

// Embedder maps texts to fixed-dimension vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
