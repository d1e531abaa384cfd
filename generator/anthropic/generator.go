package anthropic

import (
	"context"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/util/httpclient"
)

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, req generator.Request) (generator.Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.options.Model),
		MaxTokens: int64(g.options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(g.options.Temperature),
	}

	if len(req.System) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	rsp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return generator.Reply{}, err
	}

	var reply generator.Reply

	for _, content := range rsp.Content {
		switch block := content.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartText, Text: block.Text})
		case anthropic.ToolUseBlock:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartToolCall, Text: block.Name})
		default:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartBlob})
		}
	}

	return reply, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &anthropicGenerator{
		options: options,
	}

	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.ApiKey),
		anthropicopt.WithHTTPClient(httpclient.Or(options.HTTPClient, 0)),
		// retries belong to the enrichment service
		anthropicopt.WithMaxRetries(0),
	}

	if len(options.BaseURL) > 0 {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(options.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	g.client = &client

	return g
}
