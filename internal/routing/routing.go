// Package routing holds the post-dequeue handler chain: pluggable hooks
// invoked after entries complete, which may enqueue the finished vessels
// into another queue based on vessel metadata.
package routing

import (
	"context"

	"github.com/limshub/vessel-queue/internal/domain"
)

// Enqueuer is the slice of the queue service a handler is allowed to use.
// The service hands each handler a scoped implementation that rejects the
// handler's own trigger queue type, so a handler can never re-enter the
// lock it is running under.
type Enqueuer interface {
	Enqueue(ctx context.Context, qt domain.QueueType, req domain.EnqueueRequest, mc *domain.MessageCollection) (*domain.Grouping, error)
}

// Handler is invoked exactly once per completion call, with the exact set
// of entries that transitioned to Completed. Routine business conditions
// must not return errors; only unexpected collaborator failures should.
type Handler interface {
	HandlePostDequeue(ctx context.Context, completed []domain.Entry, enq Enqueuer, mc *domain.MessageCollection) error
}

// Registry maps each queue type to at most one post-dequeue handler.
// Dispatch is data, not a subclass per queue type.
type Registry struct {
	handlers map[domain.QueueType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.QueueType]Handler)}
}

func (r *Registry) Register(qt domain.QueueType, h Handler) {
	r.handlers[qt] = h
}

// For returns the handler for the queue type, or nil when none registered.
func (r *Registry) For(qt domain.QueueType) Handler {
	return r.handlers[qt]
}
