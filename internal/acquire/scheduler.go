package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/resilience"
)

// AttemptStatus is the classified result of one attempt.
type AttemptStatus int

const (
	AttemptSucceeded AttemptStatus = iota
	AttemptRetryable
	AttemptTimeout
	AttemptFatal
	AttemptCanceled
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptSucceeded:
		return "succeeded"
	case AttemptRetryable:
		return "retryable"
	case AttemptTimeout:
		return "timeout"
	case AttemptFatal:
		return "fatal"
	case AttemptCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Attempt is one try against one candidate. It is never modified after the
// scheduler records it.
type Attempt struct {
	Candidate Candidate
	Start     time.Time
	Elapsed   time.Duration
	Status    AttemptStatus
	Envelope  Envelope
	Err       error
}

// Reason renders the attempt as "model: reason" for aggregated messages.
func (a Attempt) Reason() string {
	switch a.Status {
	case AttemptSucceeded:
		return fmt.Sprintf("%s: ok", a.Candidate)
	case AttemptTimeout:
		return fmt.Sprintf("%s: timeout %s", a.Candidate, a.Elapsed.Round(time.Millisecond))
	default:
		var pe *resilience.ProviderError
		if errors.As(a.Err, &pe) && pe.StatusCode != 0 {
			return fmt.Sprintf("%s: %d", a.Candidate, pe.StatusCode)
		}
		return fmt.Sprintf("%s: %v", a.Candidate, a.Err)
	}
}

// RunState is where the scheduler's iteration ended.
type RunState int

const (
	StateTrying RunState = iota
	StateSucceeded
	StateExhausted
	StateAborted
	StateBudgetExhausted
)

func (s RunState) String() string {
	switch s {
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	case StateBudgetExhausted:
		return "budget_exhausted"
	default:
		return "unknown"
	}
}

// Run is the scheduler's result for one request.
type Run struct {
	State    RunState
	Attempts []Attempt
	// Chosen points into Attempts when State is StateSucceeded.
	Chosen *Attempt
	Start  time.Time
	// Elapsed is measured from Start, which may predate the first attempt.
	Elapsed time.Duration
}

// Err returns nil on success, otherwise a *ScheduleError.
func (r Run) Err() error {
	if r.State == StateSucceeded {
		return nil
	}
	return &ScheduleError{State: r.State, Attempts: r.Attempts}
}

// ScheduleError summarizes every attempt of a failed run, in order.
type ScheduleError struct {
	State    RunState
	Attempts []Attempt
}

func (e *ScheduleError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Reason())
	}
	detail := strings.Join(reasons, "; ")
	switch e.State {
	case StateBudgetExhausted:
		if detail == "" {
			return "time budget exhausted before any model was tried"
		}
		return "time budget exhausted: " + detail
	case StateAborted:
		if len(e.Attempts) > 0 {
			return "model call failed: " + e.Attempts[len(e.Attempts)-1].Reason()
		}
		return "model call aborted"
	default:
		if detail == "" {
			return "no candidate models configured"
		}
		return "all models exhausted: " + detail
	}
}

// CallFunc performs one call for a candidate. ctx carries the per-attempt
// deadline.
type CallFunc func(ctx context.Context, c Candidate) (Envelope, error)

// Scheduler tries candidates strictly in order, one at a time.
type Scheduler struct {
	attemptTimeout time.Duration
	budget         time.Duration
	now            func() time.Time
}

// NewScheduler returns a scheduler with the given per-attempt timeout and
// global budget. A budget of zero disables the guard.
func NewScheduler(attemptTimeout, budget time.Duration) *Scheduler {
	return &Scheduler{
		attemptTimeout: attemptTimeout,
		budget:         budget,
		now:            time.Now,
	}
}

// Run iterates candidates from start until one succeeds, a fatal error
// aborts iteration, the budget is spent, or the list runs out.
func (s *Scheduler) Run(ctx context.Context, start time.Time, candidates []Candidate, call CallFunc) (run Run) {
	run = Run{State: StateTrying, Start: start}
	defer func() { run.Elapsed = s.now().Sub(start) }()

	for i := 0; run.State == StateTrying; i++ {
		if i >= len(candidates) {
			run.State = StateExhausted
			break
		}

		elapsed := s.now().Sub(start)
		if s.budget > 0 && elapsed > s.budget {
			zap.L().Warn("acquire: time budget exhausted, skipping remaining models",
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", s.budget),
				zap.Int("remaining", len(candidates)-i),
			)
			run.State = StateBudgetExhausted
			break
		}

		c := candidates[i]
		zap.L().Info("acquire: invoking model",
			zap.String("model", c.String()),
			zap.Duration("elapsed", elapsed),
			zap.Duration("timeout", s.attemptTimeout),
		)

		a := s.attempt(ctx, c, call)
		run.Attempts = append(run.Attempts, a)
		attemptsTotal.WithLabelValues(c.String(), a.Status.String()).Inc()

		switch a.Status {
		case AttemptSucceeded:
			run.State = StateSucceeded
			run.Chosen = &run.Attempts[len(run.Attempts)-1]
			zap.L().Info("acquire: model ok",
				zap.String("model", c.String()),
				zap.Duration("took", a.Elapsed),
				zap.Duration("total", s.now().Sub(start)),
			)
		case AttemptRetryable, AttemptTimeout:
			zap.L().Warn("acquire: model failed, trying next",
				zap.String("model", c.String()),
				zap.String("status", a.Status.String()),
				zap.Bool("transient", resilience.IsTransient(a.Err)),
				zap.Error(a.Err),
			)
		case AttemptFatal, AttemptCanceled:
			run.State = StateAborted
			zap.L().Warn("acquire: model failed, aborting",
				zap.String("model", c.String()),
				zap.String("status", a.Status.String()),
				zap.Error(a.Err),
			)
		}
	}
	return run
}

type callResult struct {
	env Envelope
	err error
}

// attempt runs one call under the per-attempt deadline. If the deadline
// fires first the call is abandoned; its eventual result is discarded.
func (s *Scheduler) attempt(ctx context.Context, c Candidate, call CallFunc) Attempt {
	a := Attempt{Candidate: c, Start: s.now()}

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if s.attemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("model call panicked: %v", r)}
			}
		}()
		env, err := call(attemptCtx, c)
		done <- callResult{env: env, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		res = callResult{err: attemptCtx.Err()}
	}
	a.Elapsed = s.now().Sub(a.Start)

	switch {
	case ctx.Err() != nil:
		a.Status = AttemptCanceled
		a.Err = ctx.Err()
	case res.err == nil:
		a.Status = AttemptSucceeded
		a.Envelope = res.env
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		a.Status = AttemptTimeout
		a.Err = res.err
	default:
		a.Err = res.err
		a.Status = statusFor(resilience.KindOf(res.err))
	}
	return a
}

func statusFor(k resilience.Kind) AttemptStatus {
	switch k {
	case resilience.KindRetryable:
		return AttemptRetryable
	case resilience.KindTimeout:
		return AttemptTimeout
	case resilience.KindFatal:
		return AttemptFatal
	case resilience.KindCanceled:
		return AttemptCanceled
	default:
		return AttemptFatal
	}
}
