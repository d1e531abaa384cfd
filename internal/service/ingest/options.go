package ingest

import "time"

type Option func(*Options)

type Options struct {
	ClientID string
	Debounce time.Duration
}

func WithClientID(id string) Option {
	return func(o *Options) {
		o.ClientID = id
	}
}

// WithDebounce sets how long watch mode waits for file activity to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.Debounce = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ClientID: "client_123",
		Debounce: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
