package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StatsSource is anything that reports database/sql pool statistics.
type StatsSource interface {
	Stats() sql.DBStats
}

// StartStatsReporter logs pool statistics every interval until ctx is done.
// A non-positive interval disables reporting.
func StartStatsReporter(
	ctx context.Context,
	src StatsSource,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := src.Stats()
				log.Info("connection pool stats",
					zap.Int("open", s.OpenConnections),
					zap.Int("in_use", s.InUse),
					zap.Int("idle", s.Idle),
					zap.Int64("wait_count", s.WaitCount),
					zap.Duration("wait_duration", s.WaitDuration),
				)
				if s.MaxOpenConnections > 0 && s.InUse >= s.MaxOpenConnections {
					log.Warn("connection pool exhausted", zap.Int("max_open", s.MaxOpenConnections))
				}
			}
		}
	}()
}
