package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/w-h-a/calls/embedder"
	vectorindex "github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultBatchSize = 32

type Summary struct {
	Indexed      int `json:"indexed"`
	SkippedEmpty int `json:"skipped_empty"`
}

type Service struct {
	store     store.Store
	embedder  embedder.Embedder
	index     vectorindex.Index
	batchSize int
	tracer    trace.Tracer
}

// Build embeds every stored transcript and upserts it keyed by call_id, so
// rebuilding never duplicates documents. Any store, embedding or index error
// aborts the build.
func (s *Service) Build(ctx context.Context) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "index.build")
	defer span.End()

	var summary Summary

	ids, err := s.store.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list records: %w", err)
	}

	docs := make([]vectorindex.Document, 0, len(ids))

	for _, id := range ids {
		rec, err := s.store.Load(ctx, id)
		if err != nil {
			return summary, fmt.Errorf("load %s: %w", id, err)
		}

		if len(strings.TrimSpace(rec.Transcript)) == 0 {
			slog.WarnContext(ctx, "skipping record with empty transcript", "call_id", id)
			summary.SkippedEmpty++
			continue
		}

		docs = append(docs, Project(rec))
	}

	for start := 0; start < len(docs); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, 0, len(batch))
		for _, doc := range batch {
			texts = append(texts, doc.Text)
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return summary, fmt.Errorf("embed transcripts: %w", err)
		}

		if len(vectors) != len(batch) {
			return summary, fmt.Errorf("embedder returned %d vectors for %d transcripts", len(vectors), len(batch))
		}

		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := s.index.Upsert(ctx, batch); err != nil {
			return summary, fmt.Errorf("upsert documents: %w", err)
		}

		summary.Indexed += len(batch)
	}

	span.SetAttributes(
		attribute.Int("indexed", summary.Indexed),
		attribute.Int("skipped_empty", summary.SkippedEmpty),
	)

	slog.InfoContext(ctx, "index built", "indexed", summary.Indexed, "skipped_empty", summary.SkippedEmpty)

	return summary, nil
}

// Project maps a record onto its index document. Facet projections that are
// not computed yet are left out of the metadata.
func Project(rec *record.CallRecord) vectorindex.Document {
	metadata := map[string]any{
		"call_id":   rec.Metadata.CallID,
		"client_id": rec.Metadata.ClientID,
		"audio_ref": rec.Metadata.AudioRef,
	}

	if rec.Sentiment != nil {
		metadata["sentiment_label"] = string(rec.Sentiment.Overall)
	}

	if rec.IntentAndTopics != nil && rec.IntentAndTopics.PrimaryIntent != nil {
		metadata["primary_intent"] = *rec.IntentAndTopics.PrimaryIntent
	}

	if rec.ComplianceAndRisk != nil {
		metadata["risk_level"] = string(rec.ComplianceAndRisk.RiskLevel)
	}

	if rec.CallQuality != nil && rec.CallQuality.OverallQualityScore != nil {
		metadata["quality_score"] = *rec.CallQuality.OverallQualityScore
	}

	return vectorindex.Document{
		ID:       rec.ID(),
		Text:     rec.Transcript,
		Metadata: metadata,
	}
}

func New(s store.Store, e embedder.Embedder, idx vectorindex.Index, opts ...Option) *Service {
	options := NewOptions(opts...)

	return &Service{
		store:     s,
		embedder:  e,
		index:     idx,
		batchSize: options.BatchSize,
		tracer:    otel.Tracer("github.com/w-h-a/calls/internal/service/index"),
	}
}
