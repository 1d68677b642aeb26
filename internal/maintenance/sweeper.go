// Package maintenance runs periodic cleanup of expired refresh tokens and old
// system log rows.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/metrics"
)

type TokenSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type LogPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	tokens    TokenSweeper
	logs      LogPurger // nil when system_logs is not in use
	interval  time.Duration
	retention time.Duration
	timeout   time.Duration
}

func NewSweeper(tokens TokenSweeper, logs LogPurger, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		tokens:    tokens,
		logs:      logs,
		interval:  interval,
		retention: retention,
		timeout:   time.Minute,
	}
}

// RunOnce removes expired refresh tokens and purges logs past retention.
func (s *Sweeper) RunOnce(ctx context.Context) (tokens, logs int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tokens, err = s.tokens.Sweep(ctx)
	if err != nil {
		slog.Error("refresh token sweep failed", "op", "sweep", "error", err)
		return 0, 0, err
	}
	metrics.TokensSwept.Add(float64(tokens))

	if s.logs != nil && s.retention > 0 {
		logs, err = s.logs.Purge(ctx, time.Now().Add(-s.retention))
		if err != nil {
			slog.Error("log cleanup failed", "op", "sweep", "error", err)
			return tokens, 0, err
		}
	}

	if tokens > 0 || logs > 0 {
		slog.Info("cleanup completed", "op", "sweep", "tokens_deleted", tokens, "logs_deleted", logs)
	}
	return tokens, logs, nil
}

// Start runs RunOnce every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
