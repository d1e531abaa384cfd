package search

type Option func(*Options)

type Options struct {
	Filter map[string]any
}

// WithFilter restricts matches to documents whose metadata equals every
// given key/value, e.g. {"risk_level": "high"}.
func WithFilter(filter map[string]any) Option {
	return func(o *Options) {
		o.Filter = filter
	}
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
