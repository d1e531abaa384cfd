package index

type Option func(*Options)

type Options struct {
	BatchSize int
}

func WithBatchSize(n int) Option {
	return func(o *Options) {
		o.BatchSize = n
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		BatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchSize < 1 {
		options.BatchSize = defaultBatchSize
	}
	return options
}
