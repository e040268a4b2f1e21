package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/limshub/vessel-queue/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
// It mirrors the pg implementation's semantics, including the tail-position
// insert and the no-active-entries guard on status rollup.
type MockQueueRepository struct {
	mu        sync.RWMutex
	queues    map[domain.QueueType]*domain.Queue
	groupings map[int64]*domain.Grouping
	entries   map[int64]*domain.Entry
	nextID    int64

	// Optional error overrides — set in tests to simulate failure paths.
	CreateGroupingErr  error
	ApplySortOrdersErr error
	CompleteErr        error
}

func NewMockQueueRepository() *MockQueueRepository {
	m := &MockQueueRepository{
		queues:    make(map[domain.QueueType]*domain.Queue),
		groupings: make(map[int64]*domain.Grouping),
		entries:   make(map[int64]*domain.Entry),
	}
	for i, qt := range domain.AllQueueTypes {
		m.queues[qt] = &domain.Queue{ID: int64(i + 1), QueueType: qt, CreatedAt: time.Now().UTC()}
	}
	return m
}

func (m *MockQueueRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockQueueRepository) FindQueueByType(_ context.Context, qt domain.QueueType) (*domain.Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[qt]
	if !ok {
		return nil, domain.ErrQueueNotFound
	}
	clone := *q
	return &clone, nil
}

func (m *MockQueueRepository) activeGroupingsLocked(qt domain.QueueType) []*domain.Grouping {
	var result []*domain.Grouping
	for _, g := range m.groupings {
		if g.QueueType == qt && g.Status.InOrder() {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result
}

func (m *MockQueueRepository) FindActiveGroupings(_ context.Context, qt domain.QueueType) ([]*domain.Grouping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Grouping
	for _, g := range m.activeGroupingsLocked(qt) {
		clone := *g
		result = append(result, &clone)
	}
	return result, nil
}

func (m *MockQueueRepository) FindGroupingByID(_ context.Context, id int64) (*domain.Grouping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groupings[id]
	if !ok {
		return nil, domain.ErrGroupingNotFound
	}
	clone := *g
	return &clone, nil
}

func (m *MockQueueRepository) FindGroupingsWithEntries(_ context.Context, qt domain.QueueType, activeOnly bool) ([]domain.GroupingWithEntries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var groupings []*domain.Grouping
	for _, g := range m.groupings {
		if g.QueueType != qt {
			continue
		}
		if activeOnly && !g.Status.InOrder() {
			continue
		}
		groupings = append(groupings, g)
	}
	sort.Slice(groupings, func(i, j int) bool { return groupings[i].SortOrder < groupings[j].SortOrder })

	result := make([]domain.GroupingWithEntries, 0, len(groupings))
	for _, g := range groupings {
		gwe := domain.GroupingWithEntries{Grouping: *g}
		for _, e := range m.entriesForGroupingLocked(g.ID) {
			gwe.Entries = append(gwe.Entries, *e)
		}
		result = append(result, gwe)
	}
	return result, nil
}

func (m *MockQueueRepository) entriesForGroupingLocked(groupingID int64) []*domain.Entry {
	var result []*domain.Entry
	for _, e := range m.entries {
		if e.GroupingID == groupingID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *MockQueueRepository) FindEntriesByGroupingID(_ context.Context, groupingID int64) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Entry
	for _, e := range m.entriesForGroupingLocked(groupingID) {
		clone := *e
		result = append(result, &clone)
	}
	return result, nil
}

func (m *MockQueueRepository) FindActiveEntriesByVesselLabels(_ context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}
	var result []*domain.Entry
	for _, e := range m.entries {
		g := m.groupings[e.GroupingID]
		if g != nil && g.QueueType == qt && e.Status == domain.EntryActive && wanted[e.VesselLabel] {
			clone := *e
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockQueueRepository) FindEntriesByVesselLabels(_ context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}
	var result []*domain.Entry
	for _, e := range m.entries {
		g := m.groupings[e.GroupingID]
		if g != nil && g.QueueType == qt && wanted[e.VesselLabel] {
			clone := *e
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *MockQueueRepository) CreateGrouping(_ context.Context, g *domain.Grouping, vesselLabels []string) error {
	if m.CreateGroupingErr != nil {
		return m.CreateGroupingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var maxOrder int64
	for _, existing := range m.activeGroupingsLocked(g.QueueType) {
		if existing.SortOrder > maxOrder {
			maxOrder = existing.SortOrder
		}
	}

	now := time.Now().UTC()
	g.ID = m.id()
	g.SortOrder = maxOrder + 1
	g.CreatedAt = now
	g.UpdatedAt = now
	clone := *g
	m.groupings[g.ID] = &clone

	for _, label := range vesselLabels {
		e := &domain.Entry{
			ID:          m.id(),
			GroupingID:  g.ID,
			VesselLabel: label,
			Status:      domain.EntryActive,
			CreatedAt:   now,
		}
		m.entries[e.ID] = e
	}
	return nil
}

func (m *MockQueueRepository) ApplySortOrders(_ context.Context, orders map[int64]int64) error {
	if m.ApplySortOrdersErr != nil {
		return m.ApplySortOrdersErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, order := range orders {
		if g, ok := m.groupings[id]; ok {
			g.SortOrder = order
			g.UpdatedAt = time.Now().UTC()
		}
	}
	return nil
}

func (m *MockQueueRepository) UpdateSortOrder(_ context.Context, groupingID, sortOrder int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groupings[groupingID]; ok {
		g.SortOrder = sortOrder
		g.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockQueueRepository) CompleteEntries(_ context.Context, entryIDs []int64, completedBy string, at time.Time) error {
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range entryIDs {
		if e, ok := m.entries[id]; ok && e.Status == domain.EntryActive {
			e.Status = domain.EntryCompleted
			by := completedBy
			ts := at
			e.CompletedBy = &by
			e.CompletedAt = &ts
		}
	}
	return nil
}

func (m *MockQueueRepository) ExcludeEntries(_ context.Context, entryIDs []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range entryIDs {
		if e, ok := m.entries[id]; ok && e.Status == domain.EntryActive {
			e.Status = domain.EntryExcluded
			ts := at
			e.ExcludedAt = &ts
		}
	}
	return nil
}

func (m *MockQueueRepository) SettleGroupingStatus(_ context.Context, groupingID int64, to domain.GroupingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groupings[groupingID]
	if !ok || !g.Status.InOrder() {
		return false, nil
	}
	for _, e := range m.entriesForGroupingLocked(groupingID) {
		if e.Status == domain.EntryActive {
			return false, nil
		}
	}
	g.Status = to
	g.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MockQueueRepository) RenameGrouping(_ context.Context, groupingID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groupings[groupingID]
	if !ok {
		return domain.ErrGroupingNotFound
	}
	g.OriginMessage = name
	g.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockQueueRepository) RequeueGrouping(_ context.Context, groupingID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groupings[groupingID]
	if !ok || g.Status != domain.GroupingCompleted {
		return domain.ErrNotRequeueable
	}

	var maxOrder int64
	for _, existing := range m.activeGroupingsLocked(g.QueueType) {
		if existing.SortOrder > maxOrder {
			maxOrder = existing.SortOrder
		}
	}
	g.Status = domain.GroupingRepeat
	g.SortOrder = maxOrder + 1
	g.UpdatedAt = time.Now().UTC()

	for _, e := range m.entriesForGroupingLocked(groupingID) {
		if e.Status == domain.EntryCompleted {
			e.Status = domain.EntryActive
			e.CompletedBy = nil
			e.CompletedAt = nil
		}
	}
	return nil
}

func (m *MockQueueRepository) QueueCounts(_ context.Context) ([]domain.QueueCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byType := make(map[domain.QueueType]*domain.QueueCounts)
	for _, g := range m.groupings {
		c, ok := byType[g.QueueType]
		if !ok {
			c = &domain.QueueCounts{QueueType: g.QueueType}
			byType[g.QueueType] = c
		}
		if g.Status.InOrder() {
			c.ActiveGroupings++
		}
		for _, e := range m.entriesForGroupingLocked(g.ID) {
			if e.Status == domain.EntryActive {
				c.ActiveEntries++
			}
		}
	}
	var result []domain.QueueCounts
	for _, c := range byType {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].QueueType < result[j].QueueType })
	return result, nil
}
