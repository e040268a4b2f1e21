package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/identity"
	"github.com/limshub/vessel-queue/internal/metrics"
	"github.com/limshub/vessel-queue/internal/repository"
	"github.com/limshub/vessel-queue/internal/routing"
	"github.com/limshub/vessel-queue/internal/vessel"
)

// ReadinessCheck reports whether a vessel's work in a queue is actually
// done. Completion with default rules skips vessels the check rejects;
// the override option completes them regardless.
type ReadinessCheck func(ctx context.Context, vesselLabel string) (bool, error)

// QueueService is the engine's single entry point for queue mutations.
// All business rules (dedup at enqueue, strict sort ordering, status
// rollup, handler dispatch) live here. HTTP handlers and background
// workers depend on this service, not on each other.
//
// Concurrency: one mutex per queue type. Every mutating operation holds
// its type's mutex for the duration of the call, so operations on the
// same queue serialize while different queues proceed in parallel.
// Reads go straight to the repository.
type QueueService struct {
	repo      repository.QueueRepository
	vessels   vessel.Resolver
	users     identity.Resolver
	handlers  *routing.Registry
	readiness map[domain.QueueType]ReadinessCheck
	m         *metrics.Metrics
	logger    *zap.Logger

	locks map[domain.QueueType]*sync.Mutex
}

func NewQueueService(
	repo repository.QueueRepository,
	vessels vessel.Resolver,
	users identity.Resolver,
	handlers *routing.Registry,
	m *metrics.Metrics,
	logger *zap.Logger,
) *QueueService {
	locks := make(map[domain.QueueType]*sync.Mutex, len(domain.AllQueueTypes))
	for _, qt := range domain.AllQueueTypes {
		locks[qt] = &sync.Mutex{}
	}
	return &QueueService{
		repo:      repo,
		vessels:   vessels,
		users:     users,
		handlers:  handlers,
		readiness: make(map[domain.QueueType]ReadinessCheck),
		m:         m,
		logger:    logger,
		locks:     locks,
	}
}

// SetReadinessCheck installs the per-queue completion readiness check.
func (s *QueueService) SetReadinessCheck(qt domain.QueueType, check ReadinessCheck) {
	s.readiness[qt] = check
}

func (s *QueueService) lock(qt domain.QueueType) func() {
	mu := s.locks[qt]
	mu.Lock()
	return mu.Unlock
}

// FindQueue looks up the singleton queue aggregate for a type. Types are a
// closed enum seeded by migration, so a miss is a deployment fault, not a
// user error.
func (s *QueueService) FindQueue(ctx context.Context, qt domain.QueueType) (*domain.Queue, error) {
	if !qt.IsValid() {
		return nil, domain.ErrInvalidQueueType
	}
	return s.repo.FindQueueByType(ctx, qt)
}

// Enqueue adds vessels to a queue as one grouping at the tail of the order
// (or, when the request names a position, spliced in at that position).
//
// Vessels that already have an Active entry in the queue are skipped with a
// warning — enqueue is idempotent per vessel, and a wholly-duplicate request
// creates nothing and returns (nil, nil). The grouping and its entries are
// persisted atomically.
func (s *QueueService) Enqueue(
	ctx context.Context,
	qt domain.QueueType,
	req domain.EnqueueRequest,
	mc *domain.MessageCollection,
) (*domain.Grouping, error) {
	if !qt.IsValid() {
		return nil, domain.ErrInvalidQueueType
	}
	if err := req.Validate(); err != nil {
		mc.AddError("%v", err)
		return nil, err
	}

	defer s.lock(qt)()
	return s.enqueueLocked(ctx, qt, req, mc)
}

// enqueueLocked is Enqueue without lock acquisition, shared with the scoped
// enqueuer used by post-dequeue handlers (which already hold no lock on the
// target type but must not re-lock the trigger type).
func (s *QueueService) enqueueLocked(
	ctx context.Context,
	qt domain.QueueType,
	req domain.EnqueueRequest,
	mc *domain.MessageCollection,
) (*domain.Grouping, error) {
	// A bad target position must abort before anything is persisted.
	// Position len+1 is the tail the new grouping would occupy anyway.
	if req.Position != nil {
		groupings, err := s.activeOrdered(ctx, qt)
		if err != nil {
			return nil, err
		}
		if *req.Position < 1 || *req.Position > len(groupings)+1 {
			mc.AddError("Position %d is outside the queue: valid positions are 1 through %d.",
				*req.Position, len(groupings)+1)
			return nil, nil
		}
	}

	labels := dedupe(req.VesselLabels)

	existing, err := s.repo.FindActiveEntriesByVesselLabels(ctx, qt, labels)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	active := make(map[string]bool, len(existing))
	for _, e := range existing {
		active[e.VesselLabel] = true
	}

	remaining := labels[:0]
	for _, label := range labels {
		if active[label] {
			mc.AddWarning("%s is already in the %s queue and was skipped.", label, qt.DisplayName())
			s.m.DuplicatesSkipped.WithLabelValues(string(qt)).Inc()
			continue
		}
		remaining = append(remaining, label)
	}
	if len(remaining) == 0 {
		return nil, nil
	}

	g := &domain.Grouping{
		QueueType:     qt,
		Status:        domain.GroupingActive,
		OriginMessage: req.Message,
		Origin:        req.Origin,
	}
	if err := s.repo.CreateGrouping(ctx, g, remaining); err != nil {
		return nil, fmt.Errorf("persist grouping: %w", err)
	}

	if req.Position != nil {
		if err := s.reorderLocked(ctx, qt, g.ID, *req.Position, mc); err != nil {
			return nil, err
		}
		refreshed, err := s.repo.FindGroupingByID(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g = refreshed
	}

	s.m.Enqueued.WithLabelValues(string(qt), string(req.Origin)).Add(float64(len(remaining)))
	s.logger.Info("vessels enqueued",
		zap.String("queue_type", string(qt)),
		zap.Int64("grouping_id", g.ID),
		zap.Int("vessels", len(remaining)),
		zap.String("origin", string(req.Origin)),
	)
	return g, nil
}

// MoveToTop places the grouping ahead of everything else by dropping its
// sort order below the current minimum. No renumbering needed: comparison
// is relative, not dense.
func (s *QueueService) MoveToTop(ctx context.Context, qt domain.QueueType, groupingID int64, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	defer s.lock(qt)()

	groupings, err := s.activeOrdered(ctx, qt)
	if err != nil {
		return err
	}
	target := findGrouping(groupings, groupingID)
	if target == nil {
		mc.AddError("Error finding the queued item you wish to move within the queue.")
		return nil
	}
	if groupings[0].ID == groupingID {
		return nil // already first; repeated calls leave the order untouched
	}

	if err := s.repo.UpdateSortOrder(ctx, groupingID, groupings[0].SortOrder-1); err != nil {
		return fmt.Errorf("move to top: %w", err)
	}
	s.m.Reorders.WithLabelValues(string(qt), "top").Inc()
	return nil
}

// MoveToBottom is the symmetric operation: one past the current maximum.
func (s *QueueService) MoveToBottom(ctx context.Context, qt domain.QueueType, groupingID int64, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	defer s.lock(qt)()

	groupings, err := s.activeOrdered(ctx, qt)
	if err != nil {
		return err
	}
	target := findGrouping(groupings, groupingID)
	if target == nil {
		mc.AddError("Error finding the queued item you wish to move within the queue.")
		return nil
	}
	last := groupings[len(groupings)-1]
	if last.ID == groupingID {
		return nil
	}

	if err := s.repo.UpdateSortOrder(ctx, groupingID, last.SortOrder+1); err != nil {
		return fmt.Errorf("move to bottom: %w", err)
	}
	s.m.Reorders.WithLabelValues(string(qt), "bottom").Inc()
	return nil
}

// Reorder splices the grouping into the 1-based position among Active and
// Repeat groupings and densely renumbers them all. A nil position is a
// validation error: callers wanting the ends use MoveToTop/MoveToBottom.
// Any validation failure aborts without partial mutation.
func (s *QueueService) Reorder(ctx context.Context, qt domain.QueueType, groupingID int64, position *int, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	if position == nil {
		mc.AddError("%v", domain.ErrMissingPosition)
		return nil
	}

	defer s.lock(qt)()
	return s.reorderLocked(ctx, qt, groupingID, *position, mc)
}

func (s *QueueService) reorderLocked(ctx context.Context, qt domain.QueueType, groupingID int64, position int, mc *domain.MessageCollection) error {
	groupings, err := s.activeOrdered(ctx, qt)
	if err != nil {
		return err
	}
	if findGrouping(groupings, groupingID) == nil {
		mc.AddError("Error finding the queued item you wish to move within the queue.")
		return nil
	}
	if position < 1 || position > len(groupings) {
		mc.AddError("Position %d is outside the queue: valid positions are 1 through %d.", position, len(groupings))
		return nil
	}

	orders := spliceOrders(groupings, groupingID, position)
	if err := s.repo.ApplySortOrders(ctx, orders); err != nil {
		return fmt.Errorf("renumber queue: %w", err)
	}
	s.m.Reorders.WithLabelValues(string(qt), "position").Inc()
	return nil
}

// Exclude removes vessels from active consideration. Keys resolve by
// barcode or sample key; unknown keys and vessels without an active entry
// produce warnings, not errors. A grouping only leaves the order once its
// last active entry is gone.
func (s *QueueService) Exclude(ctx context.Context, keys []string, qt domain.QueueType, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	if len(keys) == 0 {
		mc.AddError("%v", domain.ErrEmptyVesselSet)
		return nil
	}

	defer s.lock(qt)()

	uniqueKeys := dedupe(keys)
	resolved, err := s.vessels.ResolveKeys(ctx, uniqueKeys)
	if err != nil {
		return fmt.Errorf("resolve exclusion keys: %w", err)
	}

	var labels []string
	seen := make(map[string]bool)
	for _, key := range uniqueKeys {
		label, ok := resolved[key]
		if !ok {
			mc.AddWarning("%s does not match any known vessel.", key)
			continue
		}
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return nil
	}

	entries, err := s.repo.FindActiveEntriesByVesselLabels(ctx, qt, labels)
	if err != nil {
		return fmt.Errorf("find entries to exclude: %w", err)
	}
	s.explainMissing(ctx, qt, labels, entries, domain.EntryExcluded, mc)
	if len(entries) == 0 {
		return nil
	}

	entryIDs := make([]int64, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
	}
	if err := s.repo.ExcludeEntries(ctx, entryIDs, time.Now().UTC()); err != nil {
		return err
	}
	s.m.Excluded.WithLabelValues(string(qt)).Add(float64(len(entryIDs)))

	for _, groupingID := range distinctGroupings(entries) {
		settled, err := s.repo.SettleGroupingStatus(ctx, groupingID, domain.GroupingExcluded)
		if err != nil {
			return err
		}
		if settled {
			s.logger.Info("grouping fully excluded",
				zap.String("queue_type", string(qt)), zap.Int64("grouping_id", groupingID))
		}
	}
	return nil
}

// Complete marks the vessels' entries done and dispatches the post-dequeue
// handler registered for the queue type with the exact completed set.
//
// With default rules, a vessel the queue's readiness check rejects is
// skipped with a warning; the override option completes it anyway.
// Persistence and handler failures are fatal and abort the call.
func (s *QueueService) Complete(ctx context.Context, qt domain.QueueType, req domain.CompleteRequest, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	if err := req.Validate(); err != nil {
		mc.AddError("%v", err)
		return nil
	}

	defer s.lock(qt)()

	labels := dedupe(req.VesselLabels)
	entries, err := s.repo.FindActiveEntriesByVesselLabels(ctx, qt, labels)
	if err != nil {
		return fmt.Errorf("find entries to complete: %w", err)
	}
	s.explainMissing(ctx, qt, labels, entries, domain.EntryCompleted, mc)

	ready := entries
	if check := s.readiness[qt]; check != nil && !req.Override {
		ready = ready[:0]
		for _, e := range entries {
			ok, err := check(ctx, e.VesselLabel)
			if err != nil {
				return fmt.Errorf("readiness check %s: %w", e.VesselLabel, err)
			}
			if !ok {
				mc.AddWarning("%s has been denoted as not yet completed from the %s queue.",
					e.VesselLabel, qt.DisplayName())
				continue
			}
			ready = append(ready, e)
		}
	}
	if len(ready) == 0 {
		return nil
	}

	completedBy := s.users.DisplayName(ctx, req.CompletedBy)
	completedAt := time.Now().UTC()
	entryIDs := make([]int64, len(ready))
	for i, e := range ready {
		entryIDs[i] = e.ID
	}
	if err := s.repo.CompleteEntries(ctx, entryIDs, completedBy, completedAt); err != nil {
		return err
	}
	s.m.Completed.WithLabelValues(string(qt)).Add(float64(len(entryIDs)))

	for _, groupingID := range distinctGroupings(ready) {
		settled, err := s.repo.SettleGroupingStatus(ctx, groupingID, domain.GroupingCompleted)
		if err != nil {
			return err
		}
		if settled {
			s.logger.Info("grouping completed",
				zap.String("queue_type", string(qt)), zap.Int64("grouping_id", groupingID))
		}
	}

	handler := s.handlers.For(qt)
	if handler == nil {
		return nil
	}

	completed := make([]domain.Entry, len(ready))
	for i, e := range ready {
		c := *e
		c.Status = domain.EntryCompleted
		by := completedBy
		at := completedAt
		c.CompletedBy = &by
		c.CompletedAt = &at
		completed[i] = c
	}
	if err := handler.HandlePostDequeue(ctx, completed, &scopedEnqueuer{svc: s, blocked: qt}, mc); err != nil {
		return fmt.Errorf("post-dequeue handler for %s: %w", qt, err)
	}
	return nil
}

// RenameGrouping re-labels a grouping's readable text on the queue page.
func (s *QueueService) RenameGrouping(ctx context.Context, groupingID int64, name string, mc *domain.MessageCollection) error {
	if name == "" {
		mc.AddError("%v", domain.ErrEmptyGroupName)
		return nil
	}
	return s.repo.RenameGrouping(ctx, groupingID, name)
}

// Requeue reactivates a Completed grouping as Repeat at the tail of the
// order, flipping its completed entries back to Active for rework.
func (s *QueueService) Requeue(ctx context.Context, qt domain.QueueType, groupingID int64, mc *domain.MessageCollection) error {
	if !qt.IsValid() {
		return domain.ErrInvalidQueueType
	}
	defer s.lock(qt)()

	g, err := s.repo.FindGroupingByID(ctx, groupingID)
	if err != nil {
		return err
	}
	if g.QueueType != qt {
		mc.AddError("Grouping %d does not belong to the %s queue.", groupingID, qt.DisplayName())
		return nil
	}
	if g.Status != domain.GroupingCompleted {
		mc.AddError("Only a completed grouping can be requeued; grouping %d is %s.", groupingID, g.Status)
		return nil
	}
	if err := s.repo.RequeueGrouping(ctx, groupingID); err != nil {
		return err
	}
	s.logger.Info("grouping requeued for rework",
		zap.String("queue_type", string(qt)), zap.Int64("grouping_id", groupingID))
	return nil
}

// QueueView returns the queue's groupings with entries, ordered by priority.
func (s *QueueService) QueueView(ctx context.Context, qt domain.QueueType, activeOnly bool) ([]domain.GroupingWithEntries, error) {
	if !qt.IsValid() {
		return nil, domain.ErrInvalidQueueType
	}
	return s.repo.FindGroupingsWithEntries(ctx, qt, activeOnly)
}

// GroupingView returns one grouping with its entries.
func (s *QueueService) GroupingView(ctx context.Context, groupingID int64) (*domain.GroupingWithEntries, error) {
	g, err := s.repo.FindGroupingByID(ctx, groupingID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.FindEntriesByGroupingID(ctx, groupingID)
	if err != nil {
		return nil, err
	}
	view := &domain.GroupingWithEntries{Grouping: *g}
	for _, e := range entries {
		view.Entries = append(view.Entries, *e)
	}
	return view, nil
}

// Counts reports remaining work per queue for the dashboard and gauges.
func (s *QueueService) Counts(ctx context.Context) ([]domain.QueueCounts, error) {
	return s.repo.QueueCounts(ctx)
}

// ---- private helpers ----

// activeOrdered loads the Active/Repeat groupings in priority order and
// verifies the strict-order invariant. A tie means the renumbering
// algorithms are broken; fail loudly rather than tolerate it.
func (s *QueueService) activeOrdered(ctx context.Context, qt domain.QueueType) ([]*domain.Grouping, error) {
	groupings, err := s.repo.FindActiveGroupings(ctx, qt)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(groupings); i++ {
		if groupings[i].SortOrder == groupings[i-1].SortOrder {
			return nil, fmt.Errorf("%w: groupings %d and %d share sort order %d in %s",
				domain.ErrOrderViolation, groupings[i-1].ID, groupings[i].ID, groupings[i].SortOrder, qt)
		}
	}
	return groupings, nil
}

// explainMissing adds a warning for each requested label with no active
// entry — or, when the vessel was in the queue before, an info message
// naming its current status instead.
func (s *QueueService) explainMissing(ctx context.Context, qt domain.QueueType, labels []string, found []*domain.Entry, attempted domain.EntryStatus, mc *domain.MessageCollection) {
	foundLabels := make(map[string]bool, len(found))
	for _, e := range found {
		foundLabels[e.VesselLabel] = true
	}
	var missing []string
	for _, label := range labels {
		if !foundLabels[label] {
			missing = append(missing, label)
		}
	}
	if len(missing) == 0 {
		return
	}

	history, err := s.repo.FindEntriesByVesselLabels(ctx, qt, missing)
	if err != nil {
		s.logger.Warn("entry history lookup failed", zap.Error(err))
		history = nil
	}
	latest := make(map[string]*domain.Entry)
	for _, e := range history {
		if _, ok := latest[e.VesselLabel]; !ok {
			latest[e.VesselLabel] = e // newest first
		}
	}

	for _, label := range missing {
		if e, ok := latest[label]; ok {
			mc.AddInfo("%s was attempted to be %s but was not active, it currently is: %s.",
				label, attempted, e.Status)
		} else {
			mc.AddWarning("%s is not in the %s queue.", label, qt.DisplayName())
		}
	}
}

// spliceOrders produces the dense 1..n renumbering that places movingID at
// the given 1-based position among the currently ordered groupings.
func spliceOrders(groupings []*domain.Grouping, movingID int64, position int) map[int64]int64 {
	orders := make(map[int64]int64, len(groupings))
	next := int64(1)
	for _, g := range groupings {
		if g.ID == movingID {
			continue
		}
		if next == int64(position) {
			orders[movingID] = next
			next++
		}
		orders[g.ID] = next
		next++
	}
	if _, placed := orders[movingID]; !placed {
		orders[movingID] = next // target position is the tail
	}
	return orders
}

func findGrouping(groupings []*domain.Grouping, id int64) *domain.Grouping {
	for _, g := range groupings {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func distinctGroupings(entries []*domain.Entry) []int64 {
	seen := make(map[int64]bool, len(entries))
	var ids []int64
	for _, e := range entries {
		if !seen[e.GroupingID] {
			seen[e.GroupingID] = true
			ids = append(ids, e.GroupingID)
		}
	}
	return ids
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
