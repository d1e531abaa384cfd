package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/calls/generator"
	"github.com/w-h-a/calls/util/httpclient"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, req generator.Request) (generator.Reply, error) {
	var messages []openai.ChatCompletionMessage

	if len(req.System) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       g.options.Model,
		Messages:    messages,
		Temperature: float32(g.options.Temperature),
	}

	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	rsp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return generator.Reply{}, err
	}

	if len(rsp.Choices) == 0 {
		return generator.Reply{}, errors.New("no response from OpenAI")
	}

	msg := rsp.Choices[0].Message

	var reply generator.Reply

	// an empty message is still text and fails as a format error downstream
	if len(msg.Content) > 0 || (len(msg.Refusal) == 0 && len(msg.ToolCalls) == 0) {
		reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartText, Text: msg.Content})
	}

	if len(msg.Refusal) > 0 {
		reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartRefusal, Text: msg.Refusal})
	}

	for _, call := range msg.ToolCalls {
		reply.Parts = append(reply.Parts, generator.Part{Type: generator.PartToolCall, Text: call.Function.Name})
	}

	return reply, nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	g := &openAIGenerator{
		options: options,
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	if len(options.BaseURL) > 0 {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = httpclient.Or(options.HTTPClient, 0)

	g.client = openai.NewClientWithConfig(cfg)

	return g
}
