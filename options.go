package calls

import (
	"github.com/w-h-a/calls/embedder"
	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/internal/service/enrich"
	indexer "github.com/w-h-a/calls/internal/service/index"
	"github.com/w-h-a/calls/internal/service/ingest"
	"github.com/w-h-a/calls/transcriber"
)

type Option func(*Options)

type Options struct {
	Generator        generator.Generator
	Embedder         embedder.Embedder
	Index            index.Index
	Transcriber      transcriber.Transcriber
	RecordingsDir    string
	RequiredPhrases  []string
	ForbiddenPhrases []string
	Enrich           []enrich.Option
	Ingest           []ingest.Option
	Indexer          []indexer.Option
}

func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

func WithIndex(idx index.Index) Option {
	return func(o *Options) {
		o.Index = idx
	}
}

// WithTranscriber enables ingestion of the recordings under dir.
func WithTranscriber(t transcriber.Transcriber, dir string, opts ...ingest.Option) Option {
	return func(o *Options) {
		o.Transcriber = t
		o.RecordingsDir = dir
		o.Ingest = opts
	}
}

// WithCompliancePhrases parameterizes the compliance stage.
func WithCompliancePhrases(required, forbidden []string) Option {
	return func(o *Options) {
		o.RequiredPhrases = required
		o.ForbiddenPhrases = forbidden
	}
}

func WithEnrichOptions(opts ...enrich.Option) Option {
	return func(o *Options) {
		o.Enrich = append(o.Enrich, opts...)
	}
}

func WithIndexerOptions(opts ...indexer.Option) Option {
	return func(o *Options) {
		o.Indexer = append(o.Indexer, opts...)
	}
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
