package index

import (
	"context"
	"net/http"
)

type Option func(*Options)

type Options struct {
	Location   string
	Collection string
	ApiKey     string
	HTTPClient *http.Client
	Context    context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithCollection(name string) Option {
	return func(o *Options) {
		o.Collection = name
	}
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Collection: "calls",
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type QueryOption func(*QueryOptions)

type QueryOptions struct {
	// Filter keeps matches whose metadata equals every key/value given.
	Filter map[string]any
}

func WithFilter(filter map[string]any) QueryOption {
	return func(o *QueryOptions) {
		o.Filter = filter
	}
}

func NewQueryOptions(opts ...QueryOption) QueryOptions {
	var options QueryOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
