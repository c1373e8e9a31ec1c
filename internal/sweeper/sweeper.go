// Package sweeper periodically ends game sessions nobody has moved in for too long.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"seniority/internal/observability"

	"github.com/adhocore/gronx"
)

// DefaultCron runs a sweep every five minutes.
const DefaultCron = "*/5 * * * *"

// retryDelay is how long the loop waits when the next tick cannot be computed.
const retryDelay = 30 * time.Second

// Expirer forfeits sessions idle for longer than idle and reports how many it ended.
type Expirer interface {
	ExpireIdle(ctx context.Context, idle time.Duration) (int, error)
}

// Sweeper runs an Expirer on a cron schedule.
type Sweeper struct {
	expirer Expirer
	cron    string
	idle    time.Duration
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
}

// New validates cronExpr and returns a Sweeper. An empty expression means DefaultCron.
func New(expirer Expirer, cronExpr string, idle time.Duration) (*Sweeper, error) {
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cronExpr)
	}
	if idle <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive, got %s", idle)
	}
	return &Sweeper{
		expirer: expirer,
		cron:    cronExpr,
		idle:    idle,
		now:     time.Now,
		after:   time.After,
	}, nil
}

// RunOnce performs a single sweep. Repository logs of the sweep share one
// correlation id.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if observability.ExtractCorrelationID(ctx) == "" {
		ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())
	}
	expired, err := s.expirer.ExpireIdle(ctx, s.idle)
	if err != nil {
		observability.SweeperRuns.WithLabelValues("error").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "game sweep failed",
			slog.String("correlation_id", observability.ExtractCorrelationID(ctx)),
			slog.String("error", err.Error()),
			slog.Int("expired", expired),
		)
		return expired, err
	}
	observability.SweeperRuns.WithLabelValues("ok").Inc()
	if expired > 0 {
		observability.GlobalLogger.InfoContext(ctx, "expired idle game sessions",
			slog.String("correlation_id", observability.ExtractCorrelationID(ctx)),
			slog.Int("expired", expired),
		)
	}
	return expired, nil
}

// Run sleeps until each cron tick and sweeps, until ctx is cancelled.
// Sweeps run inline so two never overlap.
func (s *Sweeper) Run(ctx context.Context) {
	observability.GlobalLogger.InfoContext(ctx, "game sweeper started",
		slog.String("cron", s.cron),
		slog.Duration("idle", s.idle),
	)
	for {
		wait := retryDelay
		next, err := gronx.NextTickAfter(s.cron, s.now().UTC(), false)
		if err != nil {
			observability.GlobalLogger.ErrorContext(ctx, "game sweeper next tick failed",
				slog.String("cron", s.cron),
				slog.String("error", err.Error()),
			)
		} else {
			wait = next.Sub(s.now())
		}

		select {
		case <-ctx.Done():
			observability.GlobalLogger.InfoContext(ctx, "game sweeper stopping")
			return
		case <-s.after(wait):
		}
		if err == nil {
			_, _ = s.RunOnce(ctx)
		}
	}
}
