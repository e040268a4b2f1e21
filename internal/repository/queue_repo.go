package repository

import (
	"context"
	"time"

	"github.com/limshub/vessel-queue/internal/domain"
)

// QueueRepository defines all persistence operations for the queue engine.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
//
// Methods that must be all-or-nothing (grouping creation, renumbering,
// requeue) run their own transaction inside the implementation.
type QueueRepository interface {
	FindQueueByType(ctx context.Context, qt domain.QueueType) (*domain.Queue, error)

	// FindActiveGroupings returns Active and Repeat groupings for the queue
	// ordered by sort_order ascending.
	FindActiveGroupings(ctx context.Context, qt domain.QueueType) ([]*domain.Grouping, error)
	FindGroupingByID(ctx context.Context, id int64) (*domain.Grouping, error)
	FindGroupingsWithEntries(ctx context.Context, qt domain.QueueType, activeOnly bool) ([]domain.GroupingWithEntries, error)
	FindEntriesByGroupingID(ctx context.Context, groupingID int64) ([]*domain.Entry, error)

	// FindActiveEntriesByVesselLabels is the batch dedup/resolution lookup:
	// Active entries in the queue whose vessel label is in labels.
	FindActiveEntriesByVesselLabels(ctx context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error)
	// FindEntriesByVesselLabels returns entries of any status, newest first,
	// used to explain why a vessel could not be completed or excluded.
	FindEntriesByVesselLabels(ctx context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error)

	// CreateGrouping inserts the grouping at sort_order max+1 for its queue
	// together with one Active entry per vessel label, in one transaction.
	// The grouping's ID, SortOrder, and timestamps are populated on return.
	CreateGrouping(ctx context.Context, g *domain.Grouping, vesselLabels []string) error

	// ApplySortOrders renumbers groupings in one transaction.
	ApplySortOrders(ctx context.Context, orders map[int64]int64) error
	UpdateSortOrder(ctx context.Context, groupingID, sortOrder int64) error

	CompleteEntries(ctx context.Context, entryIDs []int64, completedBy string, at time.Time) error
	ExcludeEntries(ctx context.Context, entryIDs []int64, at time.Time) error

	// SettleGroupingStatus moves the grouping to a terminal status only if it
	// has no remaining Active entries. Returns true when the transition
	// happened.
	SettleGroupingStatus(ctx context.Context, groupingID int64, to domain.GroupingStatus) (bool, error)

	RenameGrouping(ctx context.Context, groupingID int64, name string) error

	// RequeueGrouping reactivates a Completed grouping as Repeat at the tail
	// of the queue order and flips its completed entries back to Active,
	// in one transaction.
	RequeueGrouping(ctx context.Context, groupingID int64) error

	// QueueCounts reports remaining work per queue for dashboards and gauges.
	QueueCounts(ctx context.Context) ([]domain.QueueCounts, error)
}
