package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/w-h-a/calls/record"
	"github.com/w-h-a/calls/stage"
	"github.com/w-h-a/calls/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	KindNotFound = "record_not_found"
	KindCorrupt  = "record_corrupt"
	KindStore    = "store"
)

type Failure struct {
	CallID string `json:"call_id"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

type Summary struct {
	Facet     record.Facet `json:"facet"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Failures  []Failure    `json:"failures,omitempty"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: processed=%d skipped=%d failed=%d", s.Facet, s.Processed, s.Skipped, s.Failed)
}

type status int

const (
	processed status = iota + 1
	skipped
	failed
)

type outcome struct {
	status  status
	failure Failure
}

type Service struct {
	store   store.Store
	options Options
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// RunStage computes st's facet for every stored record that lacks it. A
// record's failure is recorded in the summary and never stops the run. When
// ctx ends no further record is started and the partial summary is returned
// with ctx.Err().
func (s *Service) RunStage(ctx context.Context, st stage.Stage) (Summary, error) {
	summary := Summary{Facet: st.Facet()}

	ids, err := s.store.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list records: %w", err)
	}

	sort.Strings(ids)

	slog.InfoContext(ctx, "running stage", "facet", st.Facet(), "records", len(ids), "workers", s.options.Workers)

	outcomes := make([]*outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.options.Workers)

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			o := s.process(ctx, st, id)
			outcomes[i] = &o
			return nil
		})
	}

	g.Wait()

	for _, o := range outcomes {
		if o == nil {
			continue
		}
		switch o.status {
		case processed:
			summary.Processed++
		case skipped:
			summary.Skipped++
		case failed:
			summary.Failed++
			summary.Failures = append(summary.Failures, o.failure)
		}
	}

	slog.InfoContext(ctx, "stage finished", "facet", summary.Facet, "processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)

	return summary, ctx.Err()
}

// RunAll runs the stages one after another in the order given.
func (s *Service) RunAll(ctx context.Context, stages []stage.Stage) ([]Summary, error) {
	summaries := make([]Summary, 0, len(stages))

	for _, st := range stages {
		summary, err := s.RunStage(ctx, st)
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, err
		}
	}

	return summaries, nil
}

func (s *Service) process(ctx context.Context, st stage.Stage, id string) outcome {
	f := st.Facet()

	ctx, span := s.tracer.Start(ctx, "enrich.stage", trace.WithAttributes(
		attribute.String("call_id", id),
		attribute.String("facet", f.String()),
	))
	defer span.End()

	fail := func(kind string, err error) outcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		slog.ErrorContext(ctx, "enrichment failed", "call_id", id, "facet", f, "kind", kind, "error", err)
		return outcome{status: failed, failure: Failure{CallID: id, Kind: kind, Reason: err.Error()}}
	}

	rec, err := s.store.Load(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fail(KindNotFound, err)
		case errors.Is(err, store.ErrCorrupt):
			return fail(KindCorrupt, err)
		default:
			return fail(KindStore, err)
		}
	}

	if rec.HasFacet(f) {
		span.SetAttributes(attribute.Bool("skipped", true))
		slog.DebugContext(ctx, "facet already present", "call_id", id, "facet", f)
		return outcome{status: skipped}
	}

	value, raw, err := s.run(ctx, st, rec)
	if err != nil {
		kind := stage.KindOf(err)
		if len(kind) == 0 {
			kind = stage.KindTransport
		}
		return fail(kind, err)
	}

	if err := rec.SetFacet(value, raw); err != nil {
		return fail(KindStore, err)
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return fail(KindStore, err)
	}

	slog.InfoContext(ctx, "facet saved", "call_id", id, "facet", f)

	return outcome{status: processed}
}

// run calls the stage under the per-call timeout, retrying transport
// failures only.
func (s *Service) run(ctx context.Context, st stage.Stage, rec *record.CallRecord) (record.FacetValue, map[string]any, error) {
	backoff := s.options.Backoff

	for attempt := 0; ; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, nil, &stage.Error{Facet: st.Facet(), Kind: stage.KindTransport, Err: err}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.options.Timeout)
		value, raw, err := st.Run(callCtx, rec)
		cancel()

		if err == nil {
			return value, raw, nil
		}

		if !errors.Is(err, stage.ErrOracleTransport) || attempt >= s.options.Retries || ctx.Err() != nil {
			return nil, nil, err
		}

		slog.WarnContext(ctx, "retrying oracle call", "call_id", rec.ID(), "facet", st.Facet(), "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, nil, err
		case <-time.After(backoff):
		}

		backoff *= 2
	}
}

func New(s store.Store, opts ...Option) *Service {
	options := NewOptions(opts...)

	svc := &Service{
		store:   s,
		options: options,
		tracer:  otel.Tracer("github.com/w-h-a/calls/internal/service/enrich"),
	}

	if options.RateLimit > 0 {
		burst := options.Burst
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(options.RateLimit, burst)
	}

	return svc
}
