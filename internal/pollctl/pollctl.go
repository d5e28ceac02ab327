// Package pollctl drives the client-side poll loop for a submitted
// enhancement job: exponential backoff between polls, a hard wall-clock
// timeout, and a persisted record so an interrupted session resumes by
// polling the existing job instead of creating a new one.
package pollctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
	"mediaboost/internal/topaz"
)

const (
	// DefaultInitialInterval is the delay before the first poll.
	DefaultInitialInterval = 2 * time.Second
	// DefaultBackoffFactor multiplies the interval after every poll.
	DefaultBackoffFactor = 1.5
	// DefaultMaxInterval caps the interval between polls.
	DefaultMaxInterval = 15 * time.Second
	// DefaultTimeout bounds the whole watch from submission time.
	DefaultTimeout = 15 * time.Minute
)

// ErrTimeout indicates the watch exceeded its wall-clock budget. The
// persisted record is kept so the job can be resumed manually.
var ErrTimeout = errors.New("pollctl: watch timed out")

// StatusFunc polls the remote job state once.
type StatusFunc func(ctx context.Context, id string) (*topaz.JobStatus, error)

// Record is the persisted trace of an in-flight job.
type Record struct {
	JobID     string    `json:"jobId"`
	StartedAt time.Time `json:"startedAt"`
}

// Store persists at most one in-flight job record.
type Store interface {
	Load() (*Record, error)
	Save(rec Record) error
	Clear() error
}

// Progress is delivered to the watch callback after every poll.
type Progress struct {
	Status   string
	Percent  float64
	Interval time.Duration
}

// Controller runs the poll loop. Clock and sleep are injectable so the
// backoff schedule can be tested without waiting.
type Controller struct {
	status  StatusFunc
	store   Store
	logger  infra.Logger
	initial time.Duration
	factor  float64
	max     time.Duration
	timeout time.Duration
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option adjusts a Controller.
type Option func(*Controller)

// WithBackoff overrides the backoff schedule.
func WithBackoff(initial time.Duration, factor float64, max time.Duration) Option {
	return func(c *Controller) {
		c.initial = initial
		c.factor = factor
		c.max = max
	}
}

// WithTimeout overrides the wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithClock injects the time source and sleeper.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		c.now = now
		c.sleep = sleep
	}
}

// New constructs a Controller with the default schedule.
func New(status StatusFunc, store Store, logger infra.Logger, opts ...Option) *Controller {
	c := &Controller{
		status:  status,
		store:   store,
		logger:  logger,
		initial: DefaultInitialInterval,
		factor:  DefaultBackoffFactor,
		max:     DefaultMaxInterval,
		timeout: DefaultTimeout,
		now:     time.Now,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Begin records a freshly submitted job and starts watching it.
func (c *Controller) Begin(ctx context.Context, jobID string, onProgress func(Progress)) (*topaz.JobStatus, error) {
	rec := Record{JobID: jobID, StartedAt: c.now()}
	if err := c.store.Save(rec); err != nil {
		return nil, fmt.Errorf("pollctl: persist job record: %w", err)
	}
	return c.watch(ctx, rec, rec.StartedAt.Add(c.timeout), onProgress)
}

// Resume picks up a previously persisted job. It only ever polls; the
// job is never re-created and no bytes are re-uploaded. The watch
// budget re-anchors at the resume itself, so a record older than the
// budget still gets a full watch instead of timing out on entry.
func (c *Controller) Resume(ctx context.Context, onProgress func(Progress)) (*topaz.JobStatus, error) {
	rec, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("pollctl: load job record: %w", err)
	}
	if rec == nil {
		return nil, errors.New("pollctl: no job to resume")
	}
	return c.watch(ctx, *rec, c.now().Add(c.timeout), onProgress)
}

// Pending reports the persisted record, if any.
func (c *Controller) Pending() (*Record, error) {
	return c.store.Load()
}

// Reset drops the persisted record without touching the remote job.
func (c *Controller) Reset() error {
	return c.store.Clear()
}

func (c *Controller) watch(ctx context.Context, rec Record, deadline time.Time, onProgress func(Progress)) (*topaz.JobStatus, error) {
	interval := c.initial

	for {
		if !c.now().Before(deadline) {
			// Record stays for manual resume.
			c.logger.Warn().Str("job_id", rec.JobID).Msg("pollctl: watch budget exhausted")
			return nil, ErrTimeout
		}
		if err := c.sleep(ctx, interval); err != nil {
			return nil, err
		}

		st, err := c.status(ctx, rec.JobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient poll failures never kill the loop.
			c.logger.Warn().Err(err).Str("job_id", rec.JobID).Msg("pollctl: poll failed, retrying")
		} else {
			if onProgress != nil {
				onProgress(Progress{Status: st.Status, Percent: st.Progress, Interval: interval})
			}
			switch {
			case st.Completed():
				if err := c.store.Clear(); err != nil {
					c.logger.Warn().Err(err).Msg("pollctl: clear job record")
				}
				return st, nil
			case st.Failed():
				if err := c.store.Clear(); err != nil {
					c.logger.Warn().Err(err).Msg("pollctl: clear job record")
				}
				detail := st.Error
				if detail == "" {
					detail = "no detail provided"
				}
				return st, fmt.Errorf("pollctl: %s: %w", detail, domain.ErrJobFailed)
			}
		}

		interval = time.Duration(float64(interval) * c.factor)
		if interval > c.max {
			interval = c.max
		}
	}
}
