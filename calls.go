// Package calls wires recording ingestion, facet enrichment, embedding and
// semantic search over one record store.
package calls

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/w-h-a/calls/index"
	handler "github.com/w-h-a/calls/internal/handler/http"
	"github.com/w-h-a/calls/internal/service/enrich"
	indexer "github.com/w-h-a/calls/internal/service/index"
	"github.com/w-h-a/calls/internal/service/ingest"
	"github.com/w-h-a/calls/internal/service/search"
	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/stage"
	"github.com/w-h-a/calls/store"
)

var ErrNotConfigured = errors.New("component not configured")

type Calls struct {
	options Options
	store   store.Store
	enrich  *enrich.Service
	ingest  *ingest.Service
	indexer *indexer.Service
	search  *search.Service
}

func (c *Calls) Record(ctx context.Context, id string) (*record.CallRecord, error) {
	return c.store.Load(ctx, id)
}

func (c *Calls) RecordIDs(ctx context.Context) ([]string, error) {
	return c.store.List(ctx)
}

func (c *Calls) Ingest(ctx context.Context) (ingest.Summary, error) {
	if c.ingest == nil {
		return ingest.Summary{}, fmt.Errorf("%w: transcriber", ErrNotConfigured)
	}
	return c.ingest.Ingest(ctx)
}

func (c *Calls) Watch(ctx context.Context, onIngest func(ingest.Summary)) error {
	if c.ingest == nil {
		return fmt.Errorf("%w: transcriber", ErrNotConfigured)
	}
	return c.ingest.Watch(ctx, onIngest)
}

// Stages returns the enrichment stages for facets, or all five in pipeline
// order when none are named.
func (c *Calls) Stages(facets ...record.Facet) ([]stage.Stage, error) {
	if c.options.Generator == nil {
		return nil, fmt.Errorf("%w: generator", ErrNotConfigured)
	}

	opts := []stage.Option{
		stage.WithRequiredPhrases(c.options.RequiredPhrases...),
		stage.WithForbiddenPhrases(c.options.ForbiddenPhrases...),
	}

	if len(facets) == 0 {
		return stage.All(c.options.Generator, opts...), nil
	}

	stages := make([]stage.Stage, 0, len(facets))
	for _, f := range facets {
		st, err := stage.ForFacet(f, c.options.Generator, opts...)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}

	return stages, nil
}

// Enrich runs the stages for facets over every stored record and returns one
// summary per stage.
func (c *Calls) Enrich(ctx context.Context, facets ...record.Facet) ([]enrich.Summary, error) {
	stages, err := c.Stages(facets...)
	if err != nil {
		return nil, err
	}
	return c.enrich.RunAll(ctx, stages)
}

func (c *Calls) BuildIndex(ctx context.Context) (indexer.Summary, error) {
	if c.indexer == nil {
		return indexer.Summary{}, fmt.Errorf("%w: embedder and index", ErrNotConfigured)
	}
	return c.indexer.Build(ctx)
}

func (c *Calls) Search(ctx context.Context, query string, k int, opts ...search.Option) ([]index.Match, error) {
	if c.search == nil {
		return nil, fmt.Errorf("%w: embedder and index", ErrNotConfigured)
	}
	return c.search.Search(ctx, query, k, opts...)
}

// Handler serves the read API. Search answers 502 when no embedder or index
// is configured.
func (c *Calls) Handler() http.Handler {
	return handler.NewRouter(handler.NewHandler(c.store, searcher{c}))
}

type searcher struct {
	c *Calls
}

func (s searcher) Search(ctx context.Context, query string, k int, opts ...search.Option) ([]index.Match, error) {
	return s.c.Search(ctx, query, k, opts...)
}

func New(s store.Store, opts ...Option) *Calls {
	if s == nil {
		panic("store is required")
	}

	options := NewOptions(opts...)

	c := &Calls{
		options: options,
		store:   s,
		enrich:  enrich.New(s, options.Enrich...),
	}

	if options.Transcriber != nil {
		c.ingest = ingest.New(s, options.Transcriber, options.RecordingsDir, options.Ingest...)
	}

	if options.Embedder != nil && options.Index != nil {
		c.indexer = indexer.New(s, options.Embedder, options.Index, options.Indexer...)
		c.search = search.New(options.Embedder, options.Index)
	}

	return c
}
