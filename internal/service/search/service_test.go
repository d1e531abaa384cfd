package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/index/memory"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	vectors := make([][]float32, 0, len(texts))
	for range texts {
		vectors = append(vectors, []float32{1, 0})
	}
	return vectors, nil
}

// cannedIndex returns its matches as given, ignoring k.
type cannedIndex struct {
	matches []index.Match
	queries int
	filter  map[string]any
}

func (c *cannedIndex) Upsert(ctx context.Context, docs []index.Document) error {
	return errors.New("read only")
}

func (c *cannedIndex) Query(ctx context.Context, vector []float32, k int, opts ...index.QueryOption) ([]index.Match, error) {
	c.queries++
	c.filter = index.NewQueryOptions(opts...).Filter
	return append([]index.Match(nil), c.matches...), nil
}

func (c *cannedIndex) Count(ctx context.Context) (int, error) {
	return len(c.matches), nil
}

func TestSearch_OrderAndLimit(t *testing.T) {
	idx := &cannedIndex{matches: []index.Match{
		{ID: "far", Distance: 0.9},
		{ID: "near", Distance: 0.1},
		{ID: "mid", Distance: 0.5},
	}}

	matches, err := New(&fakeEmbedder{}, idx).Search(context.Background(), "reschedule", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.Equal(t, 0.1, matches[0].Distance)
	assert.Equal(t, "mid", matches[1].ID)
	assert.Equal(t, 0.5, matches[1].Distance)
}

func TestSearch_RejectsBeforeTouchingIndex(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &cannedIndex{}
	svc := New(emb, idx)

	_, err := svc.Search(context.Background(), "  \n", 5)
	require.ErrorIs(t, err, ErrBlankQuery)

	_, err = svc.Search(context.Background(), "refund", 0)
	require.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.Search(context.Background(), "refund", -3)
	require.ErrorIs(t, err, ErrInvalidLimit)

	assert.Zero(t, emb.calls)
	assert.Zero(t, idx.queries)
}

func TestSearch_EmptyIndex(t *testing.T) {
	matches, err := New(&fakeEmbedder{}, memory.NewIndex()).Search(context.Background(), "refund", 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestSearch_Filter(t *testing.T) {
	idx := &cannedIndex{}

	_, err := New(&fakeEmbedder{}, idx).Search(context.Background(), "refund", 5, WithFilter(map[string]any{"risk_level": "high"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"risk_level": "high"}, idx.filter)
}

func TestSearch_MemoryIndex(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	require.NoError(t, idx.Upsert(ctx, []index.Document{
		{ID: "a", Text: "reschedule", Metadata: map[string]any{"call_id": "a"}, Vector: []float32{1, 0}},
		{ID: "b", Text: "billing", Metadata: map[string]any{"call_id": "b"}, Vector: []float32{0, 1}},
	}))

	matches, err := New(&fakeEmbedder{}, idx).Search(ctx, "reschedule", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.GreaterOrEqual(t, matches[0].Distance, 0.0)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short text", Preview("short \n text", 200))

	long := strings.Repeat("é", 250)
	got := Preview(long, 200)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}
