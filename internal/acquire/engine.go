package acquire

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Default deadlines, sized to fit inside a 60s edge request.
const (
	DefaultAttemptTimeout = 25 * time.Second
	DefaultBudget         = 55 * time.Second
)

// Engine runs acquisitions. It holds only immutable configuration and is
// safe for concurrent use.
type Engine struct {
	invoker      Invoker
	scheduler    *Scheduler
	previewBytes int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeouts sets the per-attempt timeout and the global budget.
func WithTimeouts(attempt, budget time.Duration) Option {
	return func(e *Engine) {
		now := e.scheduler.now
		e.scheduler = NewScheduler(attempt, budget)
		e.scheduler.now = now
	}
}

// WithPreviewBytes bounds raw text in diagnostics.
func WithPreviewBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.previewBytes = n
		}
	}
}

// WithClock replaces the scheduler's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.scheduler.now = now
	}
}

// NewEngine returns an engine that calls models through inv.
func NewEngine(inv Invoker, opts ...Option) *Engine {
	e := &Engine{
		invoker:      inv,
		scheduler:    NewScheduler(DefaultAttemptTimeout, DefaultBudget),
		previewBytes: DefaultPreviewBytes,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Job is one acquisition: what to ask, whom to ask, and what shape to expect.
type Job struct {
	// Start is when the surrounding request began; the budget is measured
	// from it. Zero means now.
	Start      time.Time
	Candidates []Candidate
	Request    Request
	Schema     Schema
}

// Acquire runs the job through scheduling, unwrapping, decoding and
// assembly.
func Acquire[T any](ctx context.Context, e *Engine, job Job) Outcome[T] {
	start := job.Start
	if start.IsZero() {
		start = e.scheduler.now()
	}

	run := e.scheduler.Run(ctx, start, job.Candidates, func(ctx context.Context, c Candidate) (Envelope, error) {
		return e.invoker.Invoke(ctx, c, job.Request)
	})
	out := Assemble[T](run, job.Schema, e.previewBytes)

	if !out.OK() {
		decodeTierTotal.WithLabelValues(job.Schema.Name, "none").Inc()
		zap.L().Warn("acquire: failed",
			zap.String("schema", job.Schema.Name),
			zap.String("kind", string(out.Failure.Kind)),
			zap.String("error", out.Failure.Message),
			zap.Int("attempts", len(out.Attempts)),
			zap.Duration("elapsed", out.Elapsed),
		)
		return out
	}

	decodeTierTotal.WithLabelValues(job.Schema.Name, out.Decoded.Tier.String()).Inc()
	fields := []zap.Field{
		zap.String("schema", job.Schema.Name),
		zap.String("model", out.Model),
		zap.String("tier", out.Decoded.Tier.String()),
		zap.Int("records", out.Decoded.Records),
		zap.Int("dropped", out.Decoded.Dropped),
		zap.Duration("elapsed", out.Elapsed),
	}
	if out.Empty {
		zap.L().Warn("acquire: empty response", fields...)
	} else {
		zap.L().Info("acquire: ok", fields...)
	}
	return out
}
