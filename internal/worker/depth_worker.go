package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/metrics"
	"github.com/limshub/vessel-queue/internal/repository"
)

// DepthWorker periodically publishes per-queue depth gauges so operators
// can alert on queues backing up. It reads counts straight from the
// repository; no queue lock is taken.
type DepthWorker struct {
	repo     repository.QueueRepository
	m        *metrics.Metrics
	interval time.Duration
	logger   *zap.Logger
}

func NewDepthWorker(repo repository.QueueRepository, m *metrics.Metrics, interval time.Duration, logger *zap.Logger) *DepthWorker {
	return &DepthWorker{repo: repo, m: m, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, refreshing the gauges once per tick.
func (w *DepthWorker) Run(ctx context.Context) {
	w.logger.Info("depth worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("depth worker stopping")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *DepthWorker) refresh(ctx context.Context) {
	counts, err := w.repo.QueueCounts(ctx)
	if err != nil {
		w.logger.Warn("failed to read queue counts", zap.Error(err))
		return
	}

	// Queues with no groupings yet produce no rows; zero them explicitly so
	// gauges never go stale after a queue drains.
	seen := make(map[domain.QueueType]bool, len(counts))
	for _, c := range counts {
		w.m.SetDepths(c)
		seen[c.QueueType] = true
	}
	for _, qt := range domain.AllQueueTypes {
		if !seen[qt] {
			w.m.SetDepths(domain.QueueCounts{QueueType: qt})
		}
	}
}
