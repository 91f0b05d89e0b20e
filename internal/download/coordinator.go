package download

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/myzuka-downloader/internal/fetch"
	"github.com/handiism/myzuka-downloader/internal/retry"
)

// DefaultConcurrency respects the per-IP connection cap of the origin.
const DefaultConcurrency = 3

// ErrPanic wraps a value recovered from a panicking task attempt.
var ErrPanic = errors.New("task panicked")

// Resolver finds where a task's file lives and where it goes on disk. It
// is called again before every attempt, so a stale link is refreshed.
type Resolver interface {
	Resolve(ctx context.Context, task Task) (Target, error)
}

// Fetcher materializes a URL at a path. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url, path string) (*fetch.TransferState, error)
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Retry governs the per-task loop. Nil retries forever with a random
	// 1-5s pause.
	Retry *retry.Policy

	// OnAttempt is called after every resolve/fetch attempt, from the
	// worker goroutine.
	OnAttempt func(Attempt)

	Logger zerolog.Logger
}

// Coordinator runs batches of tasks on a bounded pool of workers.
type Coordinator struct {
	resolver  Resolver
	fetcher   Fetcher
	retry     *retry.Policy
	onAttempt func(Attempt)
	locks     *pathLocks
	log       zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(resolver Resolver, fetcher Fetcher, opts CoordinatorOptions) *Coordinator {
	if opts.Retry == nil {
		opts.Retry = retry.Unbounded(retry.RandomBackoff(time.Second, 5*time.Second))
	}
	return &Coordinator{
		resolver:  resolver,
		fetcher:   fetcher,
		retry:     opts.Retry,
		onAttempt: opts.OnAttempt,
		locks:     newPathLocks(),
		log:       opts.Logger,
	}
}

// Run executes tasks with at most concurrency of them in flight. Each task
// is retried until it succeeds, fails permanently, exhausts the retry
// policy or ctx ends; one task never stops the others.
//
// The summary is always returned. The error is ctx.Err() when the batch
// was interrupted and nil otherwise.
func (c *Coordinator) Run(ctx context.Context, tasks []Task, concurrency int) (*Summary, error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	summary := &Summary{Reports: make([]Report, len(tasks))}
	for i, task := range tasks {
		summary.Reports[i] = Report{Task: task, Status: StatusPending}
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			summary.Reports[i] = c.runTask(ctx, task)
			return nil
		})
	}
	g.Wait()

	for i := range summary.Reports {
		if summary.Reports[i].Status == StatusPending {
			summary.Reports[i].Status = StatusCancelled
			summary.Reports[i].Err = ctx.Err()
		}
	}
	summary.tally()

	return summary, ctx.Err()
}

func (c *Coordinator) runTask(ctx context.Context, task Task) Report {
	report := Report{Task: task}
	log := c.log.With().Str("task", task.ID.String()).Stringer("kind", task.Kind).Int("ordinal", task.Ordinal).Logger()

	err := c.retry.Do(ctx, func(attempt int) error {
		report.Attempts = attempt
		target, state, err := c.attempt(ctx, task)
		if target != (Target{}) {
			report.Target = target
		}
		if state != nil {
			report.State = state
		}
		c.notify(Attempt{Task: task, Target: target, Number: attempt, State: state, Err: err})

		if err != nil {
			if ctx.Err() == nil && !retry.IsPermanent(err) {
				log.Warn().Err(err).Int("attempt", attempt).Msg("problem detected while downloading, retrying")
			}
			return err
		}
		return nil
	})

	switch {
	case err == nil:
		report.Status = StatusDone
	case ctx.Err() != nil:
		report.Status = StatusCancelled
		report.Err = ctx.Err()
	default:
		report.Status = StatusAbandoned
		report.Err = err
		log.Error().Err(err).Int("attempts", report.Attempts).Msg("giving up on task")
	}
	return report
}

// attempt resolves and fetches a task once. Only a successful outcome
// returns a nil error.
func (c *Coordinator) attempt(ctx context.Context, task Task) (target Target, state *fetch.TransferState, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("task", task.ID.String()).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	target, err = c.resolver.Resolve(ctx, task)
	if err != nil {
		return Target{}, nil, fmt.Errorf("resolve %s: %w", task, err)
	}

	unlock, err := c.locks.lock(ctx, target.Path)
	if err != nil {
		return target, nil, err
	}
	defer unlock()

	state, err = c.fetcher.Fetch(ctx, target.URL, target.Path)
	if err != nil {
		return target, state, err
	}
	if state.Outcome.Succeeded() {
		return target, state, nil
	}
	if state.Err != nil {
		return target, state, fmt.Errorf("%s: %w", state.Outcome, state.Err)
	}
	return target, state, fmt.Errorf("%s: %d of %d bytes", state.Outcome, state.FinalSize, state.ReportedTotal)
}

func (c *Coordinator) notify(a Attempt) {
	if c.onAttempt != nil {
		c.onAttempt(a)
	}
}
