package calls

import (
	"github.com/w-h-a/calls/embedder"
	googleembedder "github.com/w-h-a/calls/embedder/google"
	openaiembedder "github.com/w-h-a/calls/embedder/openai"
	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/generator/anthropic"
	googlegenerator "github.com/w-h-a/calls/generator/google"
	openaigenerator "github.com/w-h-a/calls/generator/openai"
	"github.com/w-h-a/calls/index"
	"github.com/w-h-a/calls/index/memory"
	"github.com/w-h-a/calls/index/postgres"
	"github.com/w-h-a/calls/index/qdrant"
	"github.com/w-h-a/calls/internal/config"
	"github.com/w-h-a/calls/internal/service/enrich"
	indexer "github.com/w-h-a/calls/internal/service/index"
	"github.com/w-h-a/calls/internal/service/ingest"
	"github.com/w-h-a/calls/store"
	"github.com/w-h-a/calls/store/file"
	"github.com/w-h-a/calls/store/redis"
	"github.com/w-h-a/calls/store/sqlite"
	"github.com/w-h-a/calls/transcriber"
	openaitranscriber "github.com/w-h-a/calls/transcriber/openai"
)

func NewStore(cfg config.Config) store.Store {
	opts := []store.Option{
		store.WithLocation(cfg.StoreLocation()),
	}

	switch cfg.Store.Provider {
	case "sqlite":
		return sqlite.NewStore(opts...)
	case "redis":
		return redis.NewStore(opts...)
	default:
		return file.NewStore(opts...)
	}
}

// NewGenerator builds the oracle client. A missing credential is a
// configuration error.
func NewGenerator(cfg config.Config) (generator.Generator, error) {
	key, err := config.APIKey(cfg.Oracle.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	opts := []generator.Option{
		generator.WithApiKey(key),
		generator.WithModel(cfg.Oracle.Model),
		generator.WithTemperature(0),
	}
	if len(cfg.Oracle.BaseURL) > 0 {
		opts = append(opts, generator.WithBaseURL(cfg.Oracle.BaseURL))
	}

	switch cfg.Oracle.Provider {
	case "anthropic":
		return anthropic.NewGenerator(opts...), nil
	case "google":
		return googlegenerator.NewGenerator(opts...), nil
	default:
		return openaigenerator.NewGenerator(opts...), nil
	}
}

func NewEmbedder(cfg config.Config) (embedder.Embedder, error) {
	key, err := config.APIKey(cfg.Embedding.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	opts := []embedder.Option{
		embedder.WithApiKey(key),
		embedder.WithModel(cfg.Embedding.Model),
	}
	if len(cfg.Embedding.BaseURL) > 0 {
		opts = append(opts, embedder.WithBaseURL(cfg.Embedding.BaseURL))
	}

	switch cfg.Embedding.Provider {
	case "google":
		return googleembedder.NewEmbedder(opts...), nil
	default:
		return openaiembedder.NewEmbedder(opts...), nil
	}
}

func NewIndex(cfg config.Config) (index.Index, error) {
	opts := []index.Option{
		index.WithLocation(cfg.IndexLocation()),
		index.WithCollection(cfg.Index.Collection),
	}

	if len(cfg.Index.APIKeyEnv) > 0 {
		key, err := config.APIKey(cfg.Index.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		opts = append(opts, index.WithApiKey(key))
	}

	switch cfg.Index.Provider {
	case "postgres":
		return postgres.NewIndex(opts...), nil
	case "qdrant":
		return qdrant.NewIndex(opts...), nil
	default:
		return memory.NewIndex(opts...), nil
	}
}

func NewTranscriber(cfg config.Config) (transcriber.Transcriber, error) {
	key, err := config.APIKey(cfg.Transcription.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	opts := []transcriber.Option{
		transcriber.WithApiKey(key),
		transcriber.WithModel(cfg.Transcription.Model),
	}
	if len(cfg.Transcription.BaseURL) > 0 {
		opts = append(opts, transcriber.WithBaseURL(cfg.Transcription.BaseURL))
	}

	return openaitranscriber.NewTranscriber(opts...), nil
}

// ConfigOptions maps the tuning knobs of cfg onto the facade. Providers are
// added separately so each command only needs the credentials it uses.
func ConfigOptions(cfg config.Config) []Option {
	return []Option{
		WithCompliancePhrases(cfg.Compliance.RequiredPhrases, cfg.Compliance.ForbiddenPhrases),
		WithEnrichOptions(
			enrich.WithTimeout(cfg.Oracle.Timeout),
			enrich.WithRetry(cfg.Oracle.Retries, cfg.Oracle.Backoff),
			enrich.WithRateLimit(cfg.Oracle.RateLimit, cfg.Oracle.Burst),
			enrich.WithWorkers(cfg.Oracle.Workers),
		),
		WithIndexerOptions(indexer.WithBatchSize(cfg.Embedding.BatchSize)),
	}
}

// IngestOptions returns the ingestion settings of cfg for WithTranscriber.
func IngestOptions(cfg config.Config) []ingest.Option {
	return []ingest.Option{
		ingest.WithClientID(cfg.ClientID),
		ingest.WithDebounce(cfg.Watch.Debounce),
	}
}
