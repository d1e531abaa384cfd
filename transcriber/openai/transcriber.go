package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/calls/transcriber"
	"github.com/w-h-a/calls/util/httpclient"
)

type openAITranscriber struct {
	options transcriber.Options
	client  *openai.Client
}

func (t *openAITranscriber) Transcribe(ctx context.Context, path string) (transcriber.Transcript, error) {
	rsp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.options.Model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return transcriber.Transcript{}, err
	}

	out := transcriber.Transcript{
		Text:     rsp.Text,
		Language: rsp.Language,
	}

	if rsp.Duration > 0 {
		d := rsp.Duration
		out.DurationSeconds = &d
	}

	return out, nil
}

func NewTranscriber(opts ...transcriber.Option) transcriber.Transcriber {
	options := transcriber.NewOptions(opts...)

	t := &openAITranscriber{
		options: options,
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	if len(options.BaseURL) > 0 {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = httpclient.Or(options.HTTPClient, 0)

	t.client = openai.NewClientWithConfig(cfg)

	return t
}
