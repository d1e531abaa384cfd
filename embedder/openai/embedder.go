package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/calls/embedder"
	"github.com/w-h-a/calls/util/httpclient"
)

type openAIEmbedder struct {
	options embedder.Options
	client  *openai.Client
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.options.Model),
	})
	if err != nil {
		return nil, err
	}

	if len(rsp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(rsp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range rsp.Data {
		if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
			return nil, fmt.Errorf("openai returned an unusable embedding at index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	e := &openAIEmbedder{
		options: options,
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	if len(options.BaseURL) > 0 {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = httpclient.Or(options.HTTPClient, 0)

	e.client = openai.NewClientWithConfig(cfg)

	return e
}
