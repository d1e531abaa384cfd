package transcriber

import (
	"context"
	"net/http"
)

type Option func(*Options)

type Options struct {
	ApiKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Context    context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Model:   "whisper-1",
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
