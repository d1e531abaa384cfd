package google

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/calls/embedder"
	genaiopt "google.golang.org/api/option"
)

type googleEmbedder struct {
	options embedder.Options
	client  *genai.Client
}

func (e *googleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.client.EmbeddingModel(e.options.Model)

	batch := model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	rsp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	if rsp == nil || len(rsp.Embeddings) != len(texts) {
		return nil, errors.New("no response from Google")
	}

	vectors := make([][]float32, 0, len(texts))
	for _, emb := range rsp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, errors.New("empty embedding from Google")
		}
		vectors = append(vectors, emb.Values)
	}

	return vectors, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	e := &googleEmbedder{
		options: options,
	}

	clientOpts := []genaiopt.ClientOption{
		genaiopt.WithAPIKey(options.ApiKey),
	}

	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, genaiopt.WithEndpoint(options.BaseURL))
	}

	client, err := genai.NewClient(options.Context, clientOpts...)
	if err != nil {
		detail := "failed to create google embedding client"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	e.client = client

	return e
}
