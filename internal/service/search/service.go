package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/w-h-a/calls/embedder"
	"github.com/w-h-a/calls/index"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrBlankQuery   = errors.New("query must not be blank")
	ErrInvalidLimit = errors.New("k must be positive")
)

type Service struct {
	embedder embedder.Embedder
	index    index.Index
	tracer   trace.Tracer
}

// Search returns at most k transcripts closest to query, nearest first. An
// empty index yields no matches and no error.
func (s *Service) Search(ctx context.Context, query string, k int, opts ...Option) ([]index.Match, error) {
	query = strings.TrimSpace(query)
	if len(query) == 0 {
		return nil, ErrBlankQuery
	}

	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, k)
	}

	options := NewOptions(opts...)

	ctx, span := s.tracer.Start(ctx, "search.query", trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	var queryOpts []index.QueryOption
	if len(options.Filter) > 0 {
		queryOpts = append(queryOpts, index.WithFilter(options.Filter))
	}

	matches, err := s.index.Query(ctx, vectors[0], k, queryOpts...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	for i := range matches {
		if matches[i].Distance < 0 {
			matches[i].Distance = 0
		}
	}

	index.SortMatches(matches)

	if len(matches) > k {
		matches = matches[:k]
	}

	if matches == nil {
		matches = []index.Match{}
	}

	span.SetAttributes(attribute.Int("matches", len(matches)))

	return matches, nil
}

// Preview shortens text to at most n runes for display.
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

func New(e embedder.Embedder, idx index.Index) *Service {
	return &Service{
		embedder: e,
		index:    idx,
		tracer:   otel.Tracer("github.com/w-h-a/calls/internal/service/search"),
	}
}
