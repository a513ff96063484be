package core

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// RetentionJobID is the execution message id the retention consumer accepts.
const RetentionJobID = "agent.retention.sweep"

const defaultRetentionNackDelay = 30 * time.Second

// RetentionStores names the purgeable stores a sweep walks. Nil entries are
// skipped, so a host can scope retention to a subset.
type RetentionStores struct {
	Verifiers VerifierStore
	Tokens    TokenStore
	Sessions  SessionStore
}

// RetentionSweeper deletes expired verifier, token, and session rows.
// Reads never purge; this is the only compaction path.
type RetentionSweeper struct {
	config RetentionConfig
	stores RetentionStores
	logger Logger
	now    func() time.Time
}

type RetentionOption func(*RetentionSweeper)

func WithRetentionLogger(logger Logger) RetentionOption {
	return func(s *RetentionSweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRetentionClock(now func() time.Time) RetentionOption {
	return func(s *RetentionSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRetentionSweeper(cfg RetentionConfig, stores RetentionStores, opts ...RetentionOption) (*RetentionSweeper, error) {
	if stores.Verifiers == nil && stores.Tokens == nil && stores.Sessions == nil {
		return nil, fmt.Errorf("core: retention sweeper requires at least one purgeable store")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Retention.Interval
	}

	sweeper := &RetentionSweeper{
		config: cfg,
		stores: stores,
		logger: glog.Ensure(nil),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(sweeper)
	}
	return sweeper, nil
}

// RunOnce purges each configured store once. A failing store does not stop
// the pass; its error is joined into the result alongside partial stats.
func (s *RetentionSweeper) RunOnce(ctx context.Context) (RetentionStats, error) {
	if s == nil {
		return RetentionStats{}, fmt.Errorf("core: retention sweeper is not configured")
	}

	now := s.now()
	stats := RetentionStats{}
	var sweepErr error

	if s.stores.Verifiers != nil {
		purged, err := s.stores.Verifiers.PurgeExpired(ctx, now)
		stats.VerifiersPurged = purged
		sweepErr = joinSweepErrors(sweepErr, err)
	}
	if s.stores.Tokens != nil {
		purged, err := s.stores.Tokens.PurgeExpired(ctx, now)
		stats.TokensPurged = purged
		sweepErr = joinSweepErrors(sweepErr, err)
	}
	if s.stores.Sessions != nil {
		purged, err := s.stores.Sessions.PurgeExpired(ctx, now)
		stats.SessionsPurged = purged
		sweepErr = joinSweepErrors(sweepErr, err)
	}

	return stats, sweepErr
}

// Run sweeps on the configured interval until the context ends. It returns
// immediately when retention is disabled; sweep failures are logged and the
// loop keeps going.
func (s *RetentionSweeper) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("core: retention sweeper is not configured")
	}
	if !s.config.Enabled {
		return nil
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("retention sweep failed", "error", err, "purged_total", stats.Total())
				continue
			}
			if stats.Total() > 0 {
				s.logger.Info("retention sweep complete",
					"verifiers_purged", stats.VerifiersPurged,
					"tokens_purged", stats.TokensPurged,
					"sessions_purged", stats.SessionsPurged,
				)
			}
		}
	}
}

var _ RetentionRunner = (*RetentionSweeper)(nil)

// RetentionJobConsumer drains retention sweep jobs from a queue. Deliveries
// for other job ids are dead-lettered rather than silently dropped.
type RetentionJobConsumer struct {
	runner    RetentionRunner
	dequeuer  JobDequeuer
	logger    Logger
	nackDelay time.Duration
}

type RetentionConsumerOption func(*RetentionJobConsumer)

func WithRetentionConsumerLogger(logger Logger) RetentionConsumerOption {
	return func(c *RetentionJobConsumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithRetentionNackDelay(delay time.Duration) RetentionConsumerOption {
	return func(c *RetentionJobConsumer) {
		if delay > 0 {
			c.nackDelay = delay
		}
	}
}

func NewRetentionJobConsumer(runner RetentionRunner, dequeuer JobDequeuer, opts ...RetentionConsumerOption) (*RetentionJobConsumer, error) {
	if runner == nil {
		return nil, fmt.Errorf("core: retention runner is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("core: job dequeuer is required")
	}

	consumer := &RetentionJobConsumer{
		runner:    runner,
		dequeuer:  dequeuer,
		logger:    glog.Ensure(nil),
		nackDelay: defaultRetentionNackDelay,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(consumer)
	}
	return consumer, nil
}

// ProcessNext handles exactly one delivery: ack after a clean sweep, nack
// with a requeue delay after a failed one.
func (c *RetentionJobConsumer) ProcessNext(ctx context.Context) (RetentionStats, error) {
	if c == nil || c.runner == nil || c.dequeuer == nil {
		return RetentionStats{}, fmt.Errorf("core: retention job consumer is not configured")
	}

	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return RetentionStats{}, err
	}
	return c.handle(ctx, delivery)
}

func (c *RetentionJobConsumer) handle(ctx context.Context, delivery JobDelivery) (RetentionStats, error) {
	if delivery == nil {
		return RetentionStats{}, fmt.Errorf("core: job dequeuer returned no delivery")
	}

	msg := delivery.Message()
	if msg == nil || msg.JobID != RetentionJobID {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		nackErr := delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     fmt.Sprintf("unexpected job id %q", jobID),
		})
		return RetentionStats{}, joinSweepErrors(fmt.Errorf("core: unexpected job id %q", jobID), nackErr)
	}

	stats, sweepErr := c.runner.RunOnce(ctx)
	if sweepErr != nil {
		nackErr := delivery.Nack(ctx, JobNackOptions{
			Delay:   c.nackDelay,
			Requeue: true,
			Reason:  sweepErr.Error(),
		})
		return stats, joinSweepErrors(sweepErr, nackErr)
	}

	if err := delivery.Ack(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Run dequeues until the context ends or the queue fails. Failed sweeps are
// nacked, logged, and the loop keeps going.
func (c *RetentionJobConsumer) Run(ctx context.Context) error {
	if c == nil || c.runner == nil || c.dequeuer == nil {
		return fmt.Errorf("core: retention job consumer is not configured")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delivery, err := c.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		stats, err := c.handle(ctx, delivery)
		if err != nil {
			c.logger.Error("retention job failed", "error", err)
			continue
		}
		if stats.Total() > 0 {
			c.logger.Info("retention job complete", "purged_total", stats.Total())
		}
	}
}

func joinSweepErrors(existing error, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%w; %v", existing, next)
}
