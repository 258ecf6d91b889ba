// Package submit pushes field updates at the diary through a bounded worker
// pool, retrying transient failures and renewing the session when the
// upstream drops it mid-batch.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/faces"
	"github.com/gradepush/gradepush/lib/session"
)

// Task is one combo update: set FieldID to Value and have the upstream
// re-render RenderID.
type Task struct {
	Name     string
	FieldID  string
	RenderID string
	Value    string

	// Confirm requires the re-rendered fragment to show Value as the
	// selected option. Skill and final-grade combos re-render their
	// panel, so confirmation is possible there; attitude combos are not
	// inspectable this way.
	Confirm bool
}

// Status classifies how a task ended.
type Status int

const (
	Succeeded Status = iota
	RetriedSucceeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case RetriedSucceeded:
		return "succeeded after retry"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the per-task verdict.
type Outcome struct {
	Task     Task
	Status   Status
	Attempts int
	Err      error
}

// Result aggregates a batch. A batch never aborts on individual failures;
// callers read the counts and decide.
type Result struct {
	Outcomes []Outcome
}

// Succeeded counts the tasks that went through.
func (r Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status != Failed {
			n++
		}
	}
	return n
}

// Failed counts the tasks that exhausted their retries.
func (r Result) Failed() int { return len(r.Outcomes) - r.Succeeded() }

// Engine runs batches of tasks. Each Engine has its own pool width; the
// request spacing lives in the shared HTTP client, so several engines never
// outrun the upstream together.
type Engine struct {
	sessions *session.Manager
	slots    lib.SlotLimiter
	retries  int
	initial  time.Duration
	logger   logrus.FieldLogger
}

// NewEngine returns an Engine with the given pool width and retry budget.
func NewEngine(sessions *session.Manager, workers, retries int, initialBackoff time.Duration, logger logrus.FieldLogger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if workers > lib.MaxWorkers {
		workers = lib.MaxWorkers
	}
	if initialBackoff <= 0 {
		initialBackoff = lib.DefaultRetryBackoff
	}
	if retries < 0 {
		retries = 0
	}
	return &Engine{
		sessions: sessions,
		slots:    lib.NewSlotLimiter(workers),
		retries:  retries,
		initial:  initialBackoff,
		logger:   logger,
	}
}

// Submit runs every task and reports per-task outcomes. Cancelling the
// context stops dispatching; tasks already in flight run to completion.
func (e *Engine) Submit(ctx context.Context, tasks []Task) Result {
	outcomes := make([]Outcome, len(tasks))
	var g errgroup.Group
	for i := range tasks {
		if err := e.slots.Begin(ctx); err != nil {
			outcomes[i] = Outcome{Task: tasks[i], Status: Failed, Err: err}
			continue
		}
		i := i
		g.Go(func() error {
			defer e.slots.End()
			outcomes[i] = e.submitOne(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()
	return Result{Outcomes: outcomes}
}

func (e *Engine) submitOne(ctx context.Context, t Task) Outcome {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.initial
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, bo.NextBackOff()); err != nil {
				lastErr = err
				break
			}
		}
		err := e.attempt(ctx, t)
		if err == nil {
			status := Succeeded
			if attempt > 0 {
				status = RetriedSucceeded
			}
			return Outcome{Task: t, Status: status, Attempts: attempt + 1}
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			break
		}
		e.logger.WithError(err).WithFields(logrus.Fields{
			"task": t.Name, "attempt": attempt + 1,
		}).Warn("Submission attempt failed")
	}
	return Outcome{Task: t, Status: Failed, Attempts: e.retries + 1, Err: lastErr}
}

// attempt sends one request against the freshest snapshot, forcing a
// session renewal when the upstream rejects it as expired.
func (e *Engine) attempt(ctx context.Context, t Task) error {
	snap, err := e.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	form := faces.BehaviorUpdate(t.FieldID, t.RenderID, t.Value, snap.ViewState)
	pr, raw, err := e.sessions.Client().PostPartial(ctx, snap.DiaryAction, form)
	if err != nil {
		if lib.IsSessionExpired(err) {
			if _, rerr := e.sessions.Refresh(ctx, snap); rerr != nil {
				return fmt.Errorf("session renewal after expiry: %w", rerr)
			}
		}
		return err
	}
	if token, ok := pr.ViewState(); ok {
		e.sessions.RotateViewState(token)
	}
	if t.Confirm && !faces.ConfirmsValue(raw, t.Value) {
		return fmt.Errorf("upstream did not confirm value '%s' for %s", t.Value, t.FieldID)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
