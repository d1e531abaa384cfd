// Package storetest holds behaviour every store provider must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
)

// Run exercises s, which must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		_, err = s.Load(ctx, "missing_1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		rec := record.New(record.Metadata{
			CallID:        "b_1700000000",
			ClientID:      "client_123",
			AudioRef:      "recordings/b.wav",
			ExtraMetadata: map[string]any{"size_bytes": 2048.0},
		}, "Hello, I'd like to reschedule my appointment.")

		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Load(ctx, rec.ID())
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("save replaces", func(t *testing.T) {
		rec, err := s.Load(ctx, "b_1700000000")
		require.NoError(t, err)

		score := 0.1
		require.NoError(t, rec.SetFacet(&record.SentimentAnalysis{
			Overall:           record.SentimentNeutral,
			Score:             &score,
			EmotionTags:       []string{"calm"},
			SentimentTimeline: []record.SentimentSegment{},
		}, map[string]any{"overall": "neutral", "score": 0.1}))
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Load(ctx, rec.ID())
		require.NoError(t, err)
		require.NotNil(t, got.Sentiment)
		assert.Equal(t, record.SentimentNeutral, got.Sentiment.Overall)
		assert.Equal(t, map[string]any{"overall": "neutral", "score": 0.1}, got.RawOracleOutputs["sentiment"])
	})

	t.Run("list is sorted", func(t *testing.T) {
		for _, id := range []string{"c_1700000002", "a_1700000001"} {
			require.NoError(t, s.Save(ctx, record.New(record.Metadata{CallID: id, ClientID: "client_123"}, "text")))
		}

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a_1700000001", "b_1700000000", "c_1700000002"}, ids)
	})

	t.Run("record without id", func(t *testing.T) {
		require.Error(t, s.Save(ctx, record.New(record.Metadata{}, "text")))
	})

	t.Run("invalid facet is not written", func(t *testing.T) {
		rec := record.New(record.Metadata{CallID: "d_1700000003", ClientID: "client_123"}, "text")
		require.NoError(t, rec.SetFacet(&record.IntentTopicsAnalysis{}, map[string]any{}))

		require.Error(t, s.Save(ctx, rec))

		_, err := s.Load(ctx, rec.ID())
		require.ErrorIs(t, err, store.ErrNotFound)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, rec.ID())
	})
}
