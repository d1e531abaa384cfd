package google

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/calls/generator"
	genaiopt "google.golang.org/api/option"
)

type googleGenerator struct {
	options generator.Options
	client  *genai.Client
}

func (g *googleGenerator) Generate(ctx context.Context, req generator.Request) (generator.Reply, error) {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetTemperature(float32(g.options.Temperature))
	model.SetMaxOutputTokens(int32(g.options.MaxTokens))

	if len(req.System) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	rsp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return generator.Reply{}, err
	}

	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return generator.Reply{}, errors.New("no response from Google")
	}

	var reply generator.Reply

	for _, part := range rsp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartText, Text: string(p)})
		case genai.FunctionCall:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartToolCall, Text: p.Name})
		default:
			reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartBlob})
		}
	}

	return reply, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &googleGenerator{
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
		detail := "failed to create google generative client"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	g.client = client

	return g
}
