package stage

type Option func(*Options)

type Options struct {
	RequiredPhrases  []string
	ForbiddenPhrases []string
}

func WithRequiredPhrases(phrases ...string) Option {
	return func(o *Options) {
		o.RequiredPhrases = phrases
	}
}

func WithForbiddenPhrases(phrases ...string) Option {
	return func(o *Options) {
		o.ForbiddenPhrases = phrases
	}
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
