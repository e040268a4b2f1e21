package service

import (
	"context"

	"github.com/limshub/vessel-queue/internal/domain"
)

// scopedEnqueuer is the enqueue surface handed to post-dequeue handlers.
// It refuses the handler's own trigger queue type: that lock is already
// held by the completion call the handler is running inside, so enqueueing
// there would self-deadlock under the per-type exclusivity model.
type scopedEnqueuer struct {
	svc     *QueueService
	blocked domain.QueueType
}

func (e *scopedEnqueuer) Enqueue(
	ctx context.Context,
	qt domain.QueueType,
	req domain.EnqueueRequest,
	mc *domain.MessageCollection,
) (*domain.Grouping, error) {
	if qt == e.blocked {
		return nil, domain.ErrScopedQueueType
	}
	return e.svc.Enqueue(ctx, qt, req, mc)
}
