package enrich

import (
	"time"

	"golang.org/x/time/rate"
)

type Option func(*Options)

type Options struct {
	// Timeout bounds each oracle call.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transport failure.
	Retries int
	Backoff time.Duration
	// RateLimit is oracle calls per second shared by all workers. Zero
	// disables limiting.
	RateLimit rate.Limit
	Burst     int
	Workers   int
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithRetry retries transport failures up to n times, doubling the wait
// from backoff after each attempt.
func WithRetry(n int, backoff time.Duration) Option {
	return func(o *Options) {
		o.Retries = n
		o.Backoff = backoff
	}
}

func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = rate.Limit(perSecond)
		o.Burst = burst
	}
}

func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Timeout: 2 * time.Minute,
		Backoff: time.Second,
		Workers: 1,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.Retries < 0 {
		options.Retries = 0
	}
	if options.Burst < 1 {
		options.Burst = 1
	}
	return options
}
