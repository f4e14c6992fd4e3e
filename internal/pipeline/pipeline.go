package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
	"github.com/couchcryptid/accident-risk-etl/internal/observability"
)

const (
	defaultRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 5 * time.Second
)

// Source opens the accident table for one run.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Sink publishes the artifacts of a run to a destination.
type Sink interface {
	Name() string
	Load(ctx context.Context, artifacts domain.Artifacts) error
}

// Options configures a Pipeline.
type Options struct {
	Schema       domain.Schema
	TopN         int
	Heat         domain.HeatLayerOptions
	SinkAttempts int
	// RetryBackoff is the first delay between sink attempts. Zero means 200ms.
	RetryBackoff time.Duration
}

// Pipeline orchestrates one load-transform-publish run and keeps the latest
// artifacts for readers.
type Pipeline struct {
	source      Source
	sinks       []Sink
	transformer *AccidentTransformer
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options

	ready    atomic.Bool
	snapshot atomic.Pointer[domain.Artifacts]
}

// New creates a Pipeline reading from source and publishing to every sink.
// Pass a nil geocoder to disable annotation of the top incidents.
func New(source Source, sinks []Sink, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.SinkAttempts < 1 {
		opts.SinkAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Pipeline{
		source:      source,
		sinks:       sinks,
		transformer: NewTransformer(geocoder, logger, opts.TopN, opts.Heat),
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
	}
}

// CheckReadiness returns nil once a run has completed successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Artifacts returns the artifacts of the latest run that got past loading.
func (p *Pipeline) Artifacts() (domain.Artifacts, bool) {
	a := p.snapshot.Load()
	if a == nil {
		return domain.Artifacts{}, false
	}
	return *a, true
}

// Run executes one batch: open the source, load and transform the table, then
// publish the artifacts to every sink. A *domain.MalformedInputError aborts the
// run before any row is processed. Sink failures are retried and then joined
// into the returned error; the artifacts are still returned and kept as the
// latest snapshot.
func (p *Pipeline) Run(ctx context.Context) (domain.Artifacts, error) {
	start := time.Now()
	p.logger.Info("pipeline run started", "top_n", p.opts.TopN, "sinks", len(p.sinks))

	raws, err := p.extract(ctx)
	if err != nil {
		var malformed *domain.MalformedInputError
		if errors.As(err, &malformed) {
			p.metrics.Runs.WithLabelValues("malformed").Inc()
		} else {
			p.metrics.Runs.WithLabelValues("error").Inc()
		}
		p.logger.Error("pipeline run aborted", "error", err)
		return domain.Artifacts{}, err
	}

	artifacts := p.transformer.Transform(ctx, raws)
	p.snapshot.Store(&artifacts)

	summary := artifacts.Summary
	p.metrics.RowsRead.Add(float64(summary.RowsRead))
	p.metrics.RowsDropped.Add(float64(summary.RowsDropped))
	p.metrics.RecordsEnriched.Add(float64(summary.RecordsEnriched))

	if err := p.publish(ctx, artifacts); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		p.logger.Error("publish artifacts failed", "error", err)
		return artifacts, err
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.PipelineReady.Set(1)
	p.ready.Store(true)

	p.logger.Info("pipeline run complete",
		"rows_read", summary.RowsRead,
		"rows_dropped", summary.RowsDropped,
		"records_enriched", summary.RecordsEnriched,
		"top_incidents", len(artifacts.TopIncidents),
		"duration", time.Since(start),
	)
	return artifacts, nil
}

func (p *Pipeline) extract(ctx context.Context) ([]domain.RawRecord, error) {
	rc, err := p.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			p.logger.Warn("close source failed", "error", cerr)
		}
	}()

	raws, err := domain.LoadRecords(rc, p.opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return raws, nil
}

// publish loads artifacts into every sink, continuing past failures.
func (p *Pipeline) publish(ctx context.Context, artifacts domain.Artifacts) error {
	var errs []error
	for _, sink := range p.sinks {
		if err := p.loadWithRetry(ctx, sink, artifacts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadWithRetry retries a sink with exponential backoff: start at RetryBackoff,
// double each attempt, cap at 5s.
func (p *Pipeline) loadWithRetry(ctx context.Context, sink Sink, artifacts domain.Artifacts) error {
	backoff := p.opts.RetryBackoff
	var err error
	for attempt := 1; attempt <= p.opts.SinkAttempts; attempt++ {
		if err = sink.Load(ctx, artifacts); err == nil {
			p.logger.Debug("sink loaded", "sink", sink.Name(), "attempt", attempt)
			return nil
		}
		p.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
		p.logger.Warn("sink load failed",
			"sink", sink.Name(),
			"attempt", attempt,
			"max_attempts", p.opts.SinkAttempts,
			"error", err,
		)
		if attempt == p.opts.SinkAttempts || !sharedretry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = sharedretry.NextBackoff(backoff, maxRetryBackoff)
	}
	return fmt.Errorf("sink %s: %w", sink.Name(), err)
}
