package harvest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/model"
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the SleepFunc used outside tests.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limits holds the thresholds of the partition state machine.
type Limits struct {
	// PageSize is the page size hint sent with every fetch.
	PageSize int

	// FlushThreshold terminates the partition once this many records are
	// buffered.
	FlushThreshold int

	// EmptyStreakLimit terminates the partition after this many
	// consecutive empty pages.
	EmptyStreakLimit int

	// AbandonPolicy selects what happens to the buffer of an abandoned
	// partition: config.AbandonDiscard or config.AbandonFlush.
	AbandonPolicy string
}

// NewLimits returns the limits configured by cfg.
func NewLimits(cfg config.HarvestConfig) Limits {
	return Limits{
		PageSize:         cfg.PageSize,
		FlushThreshold:   cfg.FlushThreshold,
		EmptyStreakLimit: cfg.EmptyStreakLimit,
		AbandonPolicy:    cfg.AbandonPolicy,
	}
}

// DefaultLimits returns the default thresholds.
func DefaultLimits() Limits {
	return Limits{
		PageSize:         config.DefaultPageSize,
		FlushThreshold:   config.DefaultFlushThreshold,
		EmptyStreakLimit: config.DefaultEmptyStreakLimit,
		AbandonPolicy:    config.AbandonDiscard,
	}
}

// PartitionRunner crawls one partition to termination.
type PartitionRunner interface {
	Run(ctx context.Context, p model.Partition) (model.PartitionResult, error)
}

// Controller is the partition state machine.
type Controller struct {
	fetcher PageFetcher
	merger  RecordMerger
	limits  Limits
	policy  BackoffPolicy
	sleep   SleepFunc
	logger  *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPolicy sets the backoff policy.
func WithPolicy(policy BackoffPolicy) ControllerOption {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithSleep replaces the wait used for pauses and cooldowns.
func WithSleep(sleep SleepFunc) ControllerOption {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller.
func NewController(fetcher PageFetcher, merger RecordMerger, limits Limits, opts ...ControllerOption) *Controller {
	c := &Controller{
		fetcher: fetcher,
		merger:  merger,
		limits:  limits,
		policy:  DefaultBackoffPolicy(),
		sleep:   Sleep,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// crawlState is owned by one Run call.
type crawlState struct {
	buffer            []model.Review
	cursor            string
	consecutiveEmpty  int
	consecutiveErrors int
}

// Run crawls p until it is exhausted, flushed or abandoned.
//
// Records are buffered in fetch order. The buffer is merged once, when the
// partition terminates: after FlushThreshold records (outcome Flushed) or
// after EmptyStreakLimit consecutive empty pages (outcome Exhausted; the
// merge happens even for an empty buffer). A failed fetch waits out the
// error cooldown and abandons the partition.
//
// The returned error is non-nil only if ctx is cancelled, in which case the
// result has outcome Interrupted and the buffer is dropped.
func (c *Controller) Run(ctx context.Context, p model.Partition) (model.PartitionResult, error) {
	started := time.Now()
	res := model.PartitionResult{Partition: p}
	st := &crawlState{}
	logger := c.logger.With("partition", p.String())

	logger.Info("partition started", "target", p.Target.DisplayName(), "level", int(p.Level), "locale", p.Locale.String())

	for {
		if err := ctx.Err(); err != nil {
			return c.interrupted(logger, res, st, started, err)
		}

		fr := c.fetcher.Fetch(ctx, p, st.cursor, c.limits.PageSize)
		res.Fetches++

		if fr.Kind == KindError && ctx.Err() != nil {
			return c.interrupted(logger, res, st, started, ctx.Err())
		}

		switch fr.Kind {
		case KindRecords:
			st.buffer = append(st.buffer, fr.Records...)
			st.consecutiveEmpty = 0
			st.consecutiveErrors = 0
		case KindEmpty:
			st.consecutiveEmpty++
			st.consecutiveErrors = 0
		default:
			st.consecutiveErrors++
		}

		decision := c.policy.Decide(fr.Kind, st.consecutiveEmpty, st.consecutiveErrors)

		if fr.Kind == KindError {
			logger.Error("fetch failed, cooling down before abandoning partition",
				"cooldown", decision.Delay,
				"buffered", len(st.buffer),
				"error", fr.Err,
			)
			if err := c.sleep(ctx, decision.Delay); err != nil {
				return c.interrupted(logger, res, st, started, err)
			}
			return c.abandon(ctx, logger, res, st, started, fr.Err)
		}

		st.cursor = fr.Next
		logger.Debug("page fetched",
			"kind", fr.Kind.String(),
			"records", len(fr.Records),
			"buffered", len(st.buffer),
			"empty_streak", st.consecutiveEmpty,
		)

		if decision.Action == Pause {
			if err := c.sleep(ctx, decision.Delay); err != nil {
				return c.interrupted(logger, res, st, started, err)
			}
		}

		if len(st.buffer) >= c.limits.FlushThreshold {
			return c.terminate(ctx, logger, res, st, started, model.OutcomeFlushed)
		}
		if st.consecutiveEmpty >= c.limits.EmptyStreakLimit {
			return c.terminate(ctx, logger, res, st, started, model.OutcomeExhausted)
		}
	}
}

// terminate merges the buffer and finishes with outcome.
func (c *Controller) terminate(ctx context.Context, logger *slog.Logger, res model.PartitionResult, st *crawlState, started time.Time, outcome model.Outcome) (model.PartitionResult, error) {
	res.Outcome = outcome
	res.Accumulated = len(st.buffer)
	res.Merged = len(st.buffer)

	n, err := c.merger.Merge(ctx, res.Partition, st.buffer)
	if err != nil {
		if ctx.Err() != nil {
			return c.interrupted(logger, res, st, started, ctx.Err())
		}
		res.Err = err
		res.Error = err.Error()
		logger.Warn("partition finished but records were not persisted", "outcome", outcome.String(), "records", len(st.buffer), "error", err)
	} else {
		res.Persisted = n
	}
	st.buffer = nil

	res.Elapsed = time.Since(started)
	logger.Info("partition finished",
		"outcome", outcome.String(),
		"fetches", res.Fetches,
		"accumulated", res.Accumulated,
		"persisted", res.Persisted,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// abandon finishes a failed partition according to the abandon policy.
func (c *Controller) abandon(ctx context.Context, logger *slog.Logger, res model.PartitionResult, st *crawlState, started time.Time, cause error) (model.PartitionResult, error) {
	res.Outcome = model.OutcomeAbandoned
	res.Accumulated = len(st.buffer)
	res.Err = cause

	if c.limits.AbandonPolicy == config.AbandonFlush && len(st.buffer) > 0 {
		res.Merged = len(st.buffer)
		n, err := c.merger.Merge(ctx, res.Partition, st.buffer)
		switch {
		case err != nil && ctx.Err() != nil:
			return c.interrupted(logger, res, st, started, ctx.Err())
		case err != nil:
			res.Err = errors.Join(cause, err)
		default:
			res.Persisted = n
		}
	} else if len(st.buffer) > 0 {
		res.Discarded = len(st.buffer)
		logger.Warn("discarding records of abandoned partition", "discarded", res.Discarded)
	}
	st.buffer = nil

	res.Error = res.Err.Error()
	res.Elapsed = time.Since(started)
	logger.Error("partition abandoned",
		"fetches", res.Fetches,
		"accumulated", res.Accumulated,
		"persisted", res.Persisted,
		"discarded", res.Discarded,
		"error", res.Err,
	)
	return res, nil
}

// interrupted finishes a cancelled partition, dropping the buffer.
func (c *Controller) interrupted(logger *slog.Logger, res model.PartitionResult, st *crawlState, started time.Time, err error) (model.PartitionResult, error) {
	res.Outcome = model.OutcomeInterrupted
	res.Accumulated = len(st.buffer)
	res.Discarded = len(st.buffer)
	res.Merged = 0
	res.Persisted = 0
	res.Err = err
	res.Error = err.Error()
	res.Elapsed = time.Since(started)
	st.buffer = nil

	logger.Warn("partition interrupted", "fetches", res.Fetches, "discarded", res.Discarded)
	return res, err
}
