package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vectorindex "github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/index/memory"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
	"github.com/w-h-a/calls/store/file"
)

type fakeEmbedder struct {
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, []float32{float32(len(text)), 1})
	}
	return vectors, nil
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s := file.NewStore(store.WithLocation(t.TempDir()))

	enriched := record.New(record.Metadata{CallID: "a_1", ClientID: "client_123", AudioRef: "a.wav"}, "I want to reschedule")
	enriched.Sentiment = &record.SentimentAnalysis{Overall: record.SentimentNegative, EmotionTags: []string{}, SentimentTimeline: []record.SentimentSegment{}}
	enriched.IntentAndTopics = &record.IntentTopicsAnalysis{PrimaryIntent: ptr("reschedule_appointment"), SecondaryIntents: []string{}, Topics: []string{}, KeyPhrases: []string{}}
	enriched.ComplianceAndRisk = &record.ComplianceRiskAnalysis{
		RequiredPhrasesPresent:   []string{},
		MissingRequiredPhrases:   []string{},
		ForbiddenPhrasesDetected: []string{},
		PIIDetected:              []record.PIIRedaction{},
		RiskLevel:                record.RiskHigh,
	}
	enriched.CallQuality = &record.CallQualityAnalysis{OverallQualityScore: ptr(82), Strengths: []string{}, Improvements: []string{}}

	require.NoError(t, s.Save(ctx, enriched))
	require.NoError(t, s.Save(ctx, record.New(record.Metadata{CallID: "b_2", ClientID: "client_123", AudioRef: "b.wav"}, "billing question")))
	require.NoError(t, s.Save(ctx, record.New(record.Metadata{CallID: "c_3", ClientID: "client_123", AudioRef: "c.wav"}, "   \n\t")))

	return s
}

func TestBuild_Idempotent(t *testing.T) {
	s := seed(t)
	idx := memory.NewIndex()
	emb := &fakeEmbedder{}
	svc := New(s, emb, idx)
	ctx := context.Background()

	summary, err := svc.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Indexed: 2, SkippedEmpty: 1}, summary)

	summary, err = svc.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Indexed: 2, SkippedEmpty: 1}, summary)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBuild_Batches(t *testing.T) {
	s := seed(t)
	emb := &fakeEmbedder{}

	_, err := New(s, emb, memory.NewIndex(), WithBatchSize(1)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"I want to reschedule"}, {"billing question"}}, emb.batches)
}

func TestBuild_EmbedError(t *testing.T) {
	s := seed(t)
	idx := memory.NewIndex()

	_, err := New(s, &fakeEmbedder{err: errors.New("quota")}, idx).Build(context.Background())
	require.Error(t, err)

	n, _ := idx.Count(context.Background())
	assert.Zero(t, n)
}

func TestBuild_Empty(t *testing.T) {
	s := file.NewStore(store.WithLocation(t.TempDir()))

	summary, err := New(s, &fakeEmbedder{}, memory.NewIndex()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestProject(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	rec, err := s.Load(ctx, "a_1")
	require.NoError(t, err)

	assert.Equal(t, vectorindex.Document{
		ID:   "a_1",
		Text: "I want to reschedule",
		Metadata: map[string]any{
			"call_id":         "a_1",
			"client_id":       "client_123",
			"audio_ref":       "a.wav",
			"sentiment_label": "negative",
			"primary_intent":  "reschedule_appointment",
			"risk_level":      "high",
			"quality_score":   82,
		},
	}, Project(rec))

	bare, err := s.Load(ctx, "b_2")
	require.NoError(t, err)

	doc := Project(bare)
	assert.Equal(t, map[string]any{"call_id": "b_2", "client_id": "client_123", "audio_ref": "b.wav"}, doc.Metadata)
}
