package service_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/identity"
	"github.com/limshub/vessel-queue/internal/metrics"
	"github.com/limshub/vessel-queue/internal/repository"
	"github.com/limshub/vessel-queue/internal/routing"
	"github.com/limshub/vessel-queue/internal/service"
	"github.com/limshub/vessel-queue/internal/vessel"
)

type fixture struct {
	svc      *service.QueueService
	repo     *repository.MockQueueRepository
	vessels  *vessel.MockResolver
	handlers *routing.Registry
}

func newFixture() *fixture {
	repo := repository.NewMockQueueRepository()
	vessels := vessel.NewMockResolver()
	handlers := routing.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	svc := service.NewQueueService(
		repo, vessels, identity.NewStaticResolver(nil), handlers, m, zap.NewNop())
	return &fixture{svc: svc, repo: repo, vessels: vessels, handlers: handlers}
}

func enqueue(t *testing.T, f *fixture, qt domain.QueueType, labels ...string) *domain.Grouping {
	t.Helper()
	mc := domain.NewMessageCollection()
	g, err := f.svc.Enqueue(context.Background(), qt, domain.EnqueueRequest{
		VesselLabels: labels,
		Message:      "test group",
		Origin:       domain.OriginManual,
	}, mc)
	if err != nil {
		t.Fatalf("enqueue %v: %v", labels, err)
	}
	return g
}

func activeOrder(t *testing.T, f *fixture, qt domain.QueueType) []int64 {
	t.Helper()
	groupings, err := f.repo.FindActiveGroupings(context.Background(), qt)
	if err != nil {
		t.Fatalf("find active groupings: %v", err)
	}
	ids := make([]int64, len(groupings))
	for i, g := range groupings {
		ids[i] = g.ID
	}
	return ids
}

func assertStrictOrder(t *testing.T, f *fixture, qt domain.QueueType) {
	t.Helper()
	groupings, err := f.repo.FindActiveGroupings(context.Background(), qt)
	if err != nil {
		t.Fatalf("find active groupings: %v", err)
	}
	seen := make(map[int64]bool)
	for _, g := range groupings {
		if seen[g.SortOrder] {
			t.Fatalf("sort order %d appears twice in %s", g.SortOrder, qt)
		}
		seen[g.SortOrder] = true
	}
}

func TestEnqueue_CreatesGroupingAtTail(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1", "V2")
	g2 := enqueue(t, f, domain.QueueQuantification, "V3")

	if g1 == nil || g2 == nil {
		t.Fatal("expected both groupings to be created")
	}
	if g2.SortOrder <= g1.SortOrder {
		t.Fatalf("expected second grouping after first, got %d <= %d", g2.SortOrder, g1.SortOrder)
	}
	if g1.Status != domain.GroupingActive {
		t.Fatalf("expected active status, got %s", g1.Status)
	}

	entries, err := f.repo.FindEntriesByGroupingID(context.Background(), g1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Status != domain.EntryActive {
			t.Fatalf("expected active entry, got %s", e.Status)
		}
	}
}

func TestEnqueue_EmptySetIsValidationError(t *testing.T) {
	f := newFixture()
	mc := domain.NewMessageCollection()

	_, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{}, mc)
	if err != domain.ErrEmptyVesselSet {
		t.Fatalf("expected ErrEmptyVesselSet, got %v", err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected validation error in message collection")
	}
}

func TestEnqueue_DuplicateSkippedWithWarning(t *testing.T) {
	f := newFixture()

	enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	g, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V1", "V2"}}, mc)
	if err != nil {
		t.Fatal(err)
	}
	if len(mc.Warnings) != 1 {
		t.Fatalf("expected 1 duplicate warning, got %v", mc.Warnings)
	}

	entries, err := f.repo.FindActiveEntriesByVesselLabels(
		context.Background(), domain.QueueQuantification, []string{"V1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one active entry for V1, got %d", len(entries))
	}

	entries, err = f.repo.FindEntriesByGroupingID(context.Background(), g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].VesselLabel != "V2" {
		t.Fatalf("expected new grouping to hold only V2, got %+v", entries)
	}
}

func TestEnqueue_WhollyDuplicateCreatesNothing(t *testing.T) {
	f := newFixture()

	enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	g, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V1"}}, mc)
	if err != nil {
		t.Fatal(err)
	}
	if g != nil {
		t.Fatal("expected no grouping for a wholly-duplicate request")
	}
	if len(mc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", mc.Warnings)
	}
	if len(activeOrder(t, f, domain.QueueQuantification)) != 1 {
		t.Fatal("expected queue to still hold one grouping")
	}
}

func TestEnqueue_AtExplicitPosition(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")

	mc := domain.NewMessageCollection()
	pos := 1
	g3, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V3"}, Position: &pos}, mc)
	if err != nil {
		t.Fatal(err)
	}

	want := []int64{g3.ID, g1.ID, g2.ID}
	got := activeOrder(t, f, domain.QueueQuantification)
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	assertStrictOrder(t, f, domain.QueueQuantification)
}

// A bad target position must abort the whole enqueue: no grouping, no
// entries, queue order untouched.
func TestEnqueue_OutOfRangePositionCreatesNothing(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	pos := 99
	g, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V2"}, Position: &pos}, mc)
	if err != nil {
		t.Fatal(err)
	}
	if g != nil {
		t.Fatal("expected no grouping for an out-of-range position")
	}
	if !mc.HasErrors() {
		t.Fatal("expected position-out-of-range error")
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	if len(got) != 1 || got[0] != g1.ID {
		t.Fatalf("queue must be unchanged after aborted enqueue, got %v", got)
	}
	entries, err := f.repo.FindActiveEntriesByVesselLabels(
		context.Background(), domain.QueueQuantification, []string{"V2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no entries may be persisted after aborted enqueue, got %d", len(entries))
	}
}

// Position len+1 is the tail slot the new grouping would take anyway, so
// it is accepted rather than rejected as out of range.
func TestEnqueue_AtTailPosition(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	pos := 2
	g2, err := f.svc.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V2"}, Position: &pos}, mc)
	if err != nil {
		t.Fatal(err)
	}
	if mc.HasErrors() {
		t.Fatalf("unexpected errors: %v", mc.Errors)
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	if len(got) != 2 || got[0] != g1.ID || got[1] != g2.ID {
		t.Fatalf("expected [%d %d], got %v", g1.ID, g2.ID, got)
	}
}

func TestInvalidQueueTypeRejectedEverywhere(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bad := domain.QueueType("dishwashing")
	mc := domain.NewMessageCollection()

	ops := map[string]func() error{
		"move to top":    func() error { return f.svc.MoveToTop(ctx, bad, 1, mc) },
		"move to bottom": func() error { return f.svc.MoveToBottom(ctx, bad, 1, mc) },
		"reorder": func() error {
			pos := 1
			return f.svc.Reorder(ctx, bad, 1, &pos, mc)
		},
		"exclude": func() error { return f.svc.Exclude(ctx, []string{"V1"}, bad, mc) },
		"requeue": func() error { return f.svc.Requeue(ctx, bad, 1, mc) },
		"complete": func() error {
			return f.svc.Complete(ctx, bad, domain.CompleteRequest{
				VesselLabels: []string{"V1"}, CompletedBy: "jdoe",
			}, mc)
		},
	}
	for name, op := range ops {
		if err := op(); err != domain.ErrInvalidQueueType {
			t.Errorf("%s: expected ErrInvalidQueueType, got %v", name, err)
		}
	}
}

func TestMoveToTop(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")

	mc := domain.NewMessageCollection()
	if err := f.svc.MoveToTop(context.Background(), domain.QueueQuantification, g2.ID, mc); err != nil {
		t.Fatal(err)
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	if got[0] != g2.ID || got[1] != g1.ID {
		t.Fatalf("expected [%d %d], got %v", g2.ID, g1.ID, got)
	}
	assertStrictOrder(t, f, domain.QueueQuantification)
}

func TestMoveToTop_Idempotent(t *testing.T) {
	f := newFixture()

	enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")

	mc := domain.NewMessageCollection()
	if err := f.svc.MoveToTop(context.Background(), domain.QueueQuantification, g2.ID, mc); err != nil {
		t.Fatal(err)
	}
	first := activeOrder(t, f, domain.QueueQuantification)

	if err := f.svc.MoveToTop(context.Background(), domain.QueueQuantification, g2.ID, mc); err != nil {
		t.Fatal(err)
	}
	second := activeOrder(t, f, domain.QueueQuantification)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering changed on repeated move-to-top: %v vs %v", first, second)
		}
	}
}

func TestMoveToBottom(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")

	mc := domain.NewMessageCollection()
	if err := f.svc.MoveToBottom(context.Background(), domain.QueueQuantification, g1.ID, mc); err != nil {
		t.Fatal(err)
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	if got[0] != g2.ID || got[1] != g1.ID {
		t.Fatalf("expected [%d %d], got %v", g2.ID, g1.ID, got)
	}
}

func TestReorder_NilPositionIsValidationError(t *testing.T) {
	f := newFixture()
	g := enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	if err := f.svc.Reorder(context.Background(), domain.QueueQuantification, g.ID, nil, mc); err != nil {
		t.Fatal(err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected validation error for nil position")
	}
}

func TestReorder_MovesToPositionAndRenumbersDensely(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")
	g3 := enqueue(t, f, domain.QueueQuantification, "V3")

	mc := domain.NewMessageCollection()
	pos := 2
	if err := f.svc.Reorder(context.Background(), domain.QueueQuantification, g3.ID, &pos, mc); err != nil {
		t.Fatal(err)
	}
	if mc.HasErrors() {
		t.Fatalf("unexpected errors: %v", mc.Errors)
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	want := []int64{g1.ID, g3.ID, g2.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	// Dense renumbering: 1..n exactly.
	groupings, _ := f.repo.FindActiveGroupings(context.Background(), domain.QueueQuantification)
	for i, g := range groupings {
		if g.SortOrder != int64(i+1) {
			t.Fatalf("expected dense sort orders, got %d at index %d", g.SortOrder, i)
		}
	}
}

func TestReorder_InvalidPositionAborts(t *testing.T) {
	f := newFixture()
	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	before := activeOrder(t, f, domain.QueueQuantification)

	mc := domain.NewMessageCollection()
	pos := 7
	if err := f.svc.Reorder(context.Background(), domain.QueueQuantification, g1.ID, &pos, mc); err != nil {
		t.Fatal(err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected position-out-of-range error")
	}
	after := activeOrder(t, f, domain.QueueQuantification)
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatal("reorder failure must not mutate the queue")
	}
}

func TestReorder_UnknownGroupingAborts(t *testing.T) {
	f := newFixture()
	enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	pos := 1
	if err := f.svc.Reorder(context.Background(), domain.QueueQuantification, 9999, &pos, mc); err != nil {
		t.Fatal(err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected unknown-grouping error")
	}
}

func TestExclude_PartialLeavesGroupingActive(t *testing.T) {
	f := newFixture()
	f.vessels.AddVessel("V1", "SM-1")
	f.vessels.AddVessel("V2", "SM-2")

	g := enqueue(t, f, domain.QueueQuantification, "V1", "V2")

	mc := domain.NewMessageCollection()
	if err := f.svc.Exclude(context.Background(), []string{"V1"}, domain.QueueQuantification, mc); err != nil {
		t.Fatal(err)
	}

	refreshed, err := f.repo.FindGroupingByID(context.Background(), g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.Status != domain.GroupingActive {
		t.Fatalf("expected grouping to stay active, got %s", refreshed.Status)
	}

	entries, _ := f.repo.FindEntriesByGroupingID(context.Background(), g.ID)
	var active, excluded int
	for _, e := range entries {
		switch e.Status {
		case domain.EntryActive:
			active++
		case domain.EntryExcluded:
			excluded++
			if e.ExcludedAt == nil {
				t.Fatal("excluded entry must carry a timestamp")
			}
		}
	}
	if active != 1 || excluded != 1 {
		t.Fatalf("expected 1 active + 1 excluded, got %d/%d", active, excluded)
	}
}

func TestExclude_AllTransitionsGrouping(t *testing.T) {
	f := newFixture()
	f.vessels.AddVessel("V1", "SM-1")
	f.vessels.AddVessel("V2", "SM-2")

	g := enqueue(t, f, domain.QueueQuantification, "V1", "V2")

	mc := domain.NewMessageCollection()
	// Exclude by sample key: the resolver maps either form to the label.
	if err := f.svc.Exclude(context.Background(), []string{"SM-1", "V2"}, domain.QueueQuantification, mc); err != nil {
		t.Fatal(err)
	}

	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g.ID)
	if refreshed.Status != domain.GroupingExcluded {
		t.Fatalf("expected grouping excluded, got %s", refreshed.Status)
	}
}

func TestExclude_UnknownKeyWarns(t *testing.T) {
	f := newFixture()
	f.vessels.AddVessel("V1", "")
	enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	if err := f.svc.Exclude(context.Background(), []string{"NOPE"}, domain.QueueQuantification, mc); err != nil {
		t.Fatal(err)
	}
	if len(mc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", mc.Warnings)
	}
	if mc.HasErrors() {
		t.Fatal("unknown key must warn, not error")
	}
}

// captureHandler records every post-dequeue invocation.
type captureHandler struct {
	calls     int
	completed []domain.Entry
	enq       routing.Enqueuer
}

func (h *captureHandler) HandlePostDequeue(_ context.Context, completed []domain.Entry, enq routing.Enqueuer, _ *domain.MessageCollection) error {
	h.calls++
	h.completed = completed
	h.enq = enq
	return nil
}

func TestComplete_MarksEntriesAndRollsUpGrouping(t *testing.T) {
	f := newFixture()
	h := &captureHandler{}
	f.handlers.Register(domain.QueueQuantification, h)

	g := enqueue(t, f, domain.QueueQuantification, "V1", "V2")

	mc := domain.NewMessageCollection()
	err := f.svc.Complete(context.Background(), domain.QueueQuantification, domain.CompleteRequest{
		VesselLabels: []string{"V1", "V2"},
		CompletedBy:  "jdoe",
	}, mc)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g.ID)
	if refreshed.Status != domain.GroupingCompleted {
		t.Fatalf("expected grouping completed, got %s", refreshed.Status)
	}

	entries, _ := f.repo.FindEntriesByGroupingID(context.Background(), g.ID)
	for _, e := range entries {
		if e.Status != domain.EntryCompleted {
			t.Fatalf("expected completed entry, got %s", e.Status)
		}
		if e.CompletedBy == nil || *e.CompletedBy != "jdoe" {
			t.Fatalf("expected completed_by=jdoe, got %v", e.CompletedBy)
		}
		if e.CompletedAt == nil {
			t.Fatal("expected completed_at to be set")
		}
	}

	if h.calls != 1 {
		t.Fatalf("expected handler invoked exactly once, got %d", h.calls)
	}
	if len(h.completed) != 2 {
		t.Fatalf("expected handler to receive 2 entries, got %d", len(h.completed))
	}
}

func TestComplete_PartialLeavesGroupingActive(t *testing.T) {
	f := newFixture()
	g := enqueue(t, f, domain.QueueQuantification, "V1", "V2")

	mc := domain.NewMessageCollection()
	err := f.svc.Complete(context.Background(), domain.QueueQuantification, domain.CompleteRequest{
		VesselLabels: []string{"V1"},
		CompletedBy:  "jdoe",
	}, mc)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g.ID)
	if refreshed.Status != domain.GroupingActive {
		t.Fatalf("expected grouping still active, got %s", refreshed.Status)
	}
}

func TestComplete_NonActiveVesselGetsInfo(t *testing.T) {
	f := newFixture()
	h := &captureHandler{}
	f.handlers.Register(domain.QueueQuantification, h)

	enqueue(t, f, domain.QueueQuantification, "V1")
	mc := domain.NewMessageCollection()
	req := domain.CompleteRequest{VesselLabels: []string{"V1"}, CompletedBy: "jdoe"}
	if err := f.svc.Complete(context.Background(), domain.QueueQuantification, req, mc); err != nil {
		t.Fatal(err)
	}

	// Second completion: no active entry left, handler must not fire again.
	mc = domain.NewMessageCollection()
	if err := f.svc.Complete(context.Background(), domain.QueueQuantification, req, mc); err != nil {
		t.Fatal(err)
	}
	if len(mc.Infos) != 1 {
		t.Fatalf("expected info about non-active entry, got %+v", mc)
	}
	if h.calls != 1 {
		t.Fatalf("handler must not fire on an empty completed set, got %d calls", h.calls)
	}
}

func TestComplete_ReadinessCheckSkipsAndOverrideCompletes(t *testing.T) {
	f := newFixture()
	f.svc.SetReadinessCheck(domain.QueueQuantification,
		func(_ context.Context, label string) (bool, error) {
			return label != "V1", nil
		})

	g := enqueue(t, f, domain.QueueQuantification, "V1", "V2")

	mc := domain.NewMessageCollection()
	req := domain.CompleteRequest{VesselLabels: []string{"V1", "V2"}, CompletedBy: "jdoe"}
	if err := f.svc.Complete(context.Background(), domain.QueueQuantification, req, mc); err != nil {
		t.Fatal(err)
	}
	if len(mc.Warnings) != 1 {
		t.Fatalf("expected not-yet-completed warning for V1, got %v", mc.Warnings)
	}

	entries, _ := f.repo.FindActiveEntriesByVesselLabels(
		context.Background(), domain.QueueQuantification, []string{"V1"})
	if len(entries) != 1 {
		t.Fatal("V1 must remain active when the readiness check rejects it")
	}

	mc = domain.NewMessageCollection()
	req.Override = true
	if err := f.svc.Complete(context.Background(), domain.QueueQuantification, req, mc); err != nil {
		t.Fatal(err)
	}
	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g.ID)
	if refreshed.Status != domain.GroupingCompleted {
		t.Fatalf("expected grouping completed after override, got %s", refreshed.Status)
	}
}

func TestScopedEnqueuerRejectsTriggerQueue(t *testing.T) {
	f := newFixture()
	h := &captureHandler{}
	f.handlers.Register(domain.QueueQuantification, h)

	enqueue(t, f, domain.QueueQuantification, "V1")
	mc := domain.NewMessageCollection()
	err := f.svc.Complete(context.Background(), domain.QueueQuantification, domain.CompleteRequest{
		VesselLabels: []string{"V1"}, CompletedBy: "jdoe",
	}, mc)
	if err != nil {
		t.Fatal(err)
	}

	_, err = h.enq.Enqueue(context.Background(), domain.QueueQuantification,
		domain.EnqueueRequest{VesselLabels: []string{"V9"}}, domain.NewMessageCollection())
	if err != domain.ErrScopedQueueType {
		t.Fatalf("expected ErrScopedQueueType, got %v", err)
	}

	// A different queue type is allowed.
	g, err := h.enq.Enqueue(context.Background(), domain.QueuePlatingArray,
		domain.EnqueueRequest{VesselLabels: []string{"V9"}}, domain.NewMessageCollection())
	if err != nil || g == nil {
		t.Fatalf("expected cross-queue enqueue to succeed, got %v", err)
	}
}

func TestRequeue_ReactivatesCompletedGrouping(t *testing.T) {
	f := newFixture()

	g1 := enqueue(t, f, domain.QueueQuantification, "V1")
	g2 := enqueue(t, f, domain.QueueQuantification, "V2")

	mc := domain.NewMessageCollection()
	err := f.svc.Complete(context.Background(), domain.QueueQuantification, domain.CompleteRequest{
		VesselLabels: []string{"V1"}, CompletedBy: "jdoe",
	}, mc)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Requeue(context.Background(), domain.QueueQuantification, g1.ID, mc); err != nil {
		t.Fatal(err)
	}

	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g1.ID)
	if refreshed.Status != domain.GroupingRepeat {
		t.Fatalf("expected repeat status, got %s", refreshed.Status)
	}

	got := activeOrder(t, f, domain.QueueQuantification)
	if len(got) != 2 || got[0] != g2.ID || got[1] != g1.ID {
		t.Fatalf("expected requeued grouping at the tail, got %v", got)
	}

	entries, _ := f.repo.FindEntriesByGroupingID(context.Background(), g1.ID)
	if entries[0].Status != domain.EntryActive || entries[0].CompletedBy != nil {
		t.Fatalf("expected entry reactivated, got %+v", entries[0])
	}
}

func TestRequeue_ActiveGroupingRejected(t *testing.T) {
	f := newFixture()
	g := enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	if err := f.svc.Requeue(context.Background(), domain.QueueQuantification, g.ID, mc); err != nil {
		t.Fatal(err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected error when requeueing an active grouping")
	}
}

func TestRenameGrouping(t *testing.T) {
	f := newFixture()
	g := enqueue(t, f, domain.QueueQuantification, "V1")

	mc := domain.NewMessageCollection()
	if err := f.svc.RenameGrouping(context.Background(), g.ID, "priority batch", mc); err != nil {
		t.Fatal(err)
	}
	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g.ID)
	if refreshed.OriginMessage != "priority batch" {
		t.Fatalf("expected renamed grouping, got %q", refreshed.OriginMessage)
	}

	if err := f.svc.RenameGrouping(context.Background(), g.ID, "", mc); err != nil {
		t.Fatal(err)
	}
	if !mc.HasErrors() {
		t.Fatal("expected blank-name validation error")
	}
}

// TestEndToEndScenario walks the full workflow: grouped enqueue, second
// grouping, move-to-top, partial exclusion, completion with handler
// dispatch and chained enqueue into another queue.
func TestEndToEndScenario(t *testing.T) {
	f := newFixture()
	f.vessels.AddVessel("A", "SM-A")
	f.vessels.AddVessel("B", "SM-B")
	f.vessels.AddVessel("C", "SM-C")

	chained := &chainingHandler{target: domain.QueuePlatingArray}
	f.handlers.Register(domain.QueueQuantification, chained)

	g1 := enqueue(t, f, domain.QueueQuantification, "A", "B")
	if g1.SortOrder != 1 {
		t.Fatalf("expected first grouping at order 1, got %d", g1.SortOrder)
	}
	g2 := enqueue(t, f, domain.QueueQuantification, "C")
	if g2.SortOrder != 2 {
		t.Fatalf("expected second grouping at order 2, got %d", g2.SortOrder)
	}

	mc := domain.NewMessageCollection()
	if err := f.svc.MoveToTop(context.Background(), domain.QueueQuantification, g2.ID, mc); err != nil {
		t.Fatal(err)
	}
	got := activeOrder(t, f, domain.QueueQuantification)
	if got[0] != g2.ID || got[1] != g1.ID {
		t.Fatalf("expected [C] before [A B], got %v", got)
	}

	if err := f.svc.Exclude(context.Background(), []string{"A"}, domain.QueueQuantification, mc); err != nil {
		t.Fatal(err)
	}
	refreshed, _ := f.repo.FindGroupingByID(context.Background(), g1.ID)
	if refreshed.Status != domain.GroupingActive {
		t.Fatalf("grouping1 must stay active after partial exclusion, got %s", refreshed.Status)
	}

	if err := f.svc.Complete(context.Background(), domain.QueueQuantification, domain.CompleteRequest{
		VesselLabels: []string{"B"}, CompletedBy: "jdoe",
	}, mc); err != nil {
		t.Fatal(err)
	}

	refreshed, _ = f.repo.FindGroupingByID(context.Background(), g1.ID)
	if refreshed.Status != domain.GroupingCompleted {
		t.Fatalf("expected grouping1 completed, got %s", refreshed.Status)
	}
	if len(chained.received) != 1 || chained.received[0] != "B" {
		t.Fatalf("handler must receive exactly [B], got %v", chained.received)
	}

	// The chained enqueue landed in the target queue.
	entries, _ := f.repo.FindActiveEntriesByVesselLabels(
		context.Background(), domain.QueuePlatingArray, []string{"B"})
	if len(entries) != 1 {
		t.Fatalf("expected B active in plating-array, got %d entries", len(entries))
	}
	assertStrictOrder(t, f, domain.QueueQuantification)
}

// chainingHandler forwards every completed vessel into the target queue,
// mimicking cross-queue workflow routing.
type chainingHandler struct {
	target   domain.QueueType
	received []string
}

func (h *chainingHandler) HandlePostDequeue(ctx context.Context, completed []domain.Entry, enq routing.Enqueuer, mc *domain.MessageCollection) error {
	labels := make([]string, len(completed))
	for i, e := range completed {
		labels[i] = e.VesselLabel
	}
	h.received = append(h.received, labels...)
	_, err := enq.Enqueue(ctx, h.target, domain.EnqueueRequest{
		VesselLabels: labels,
		Message:      "chained",
		Origin:       domain.OriginRouted,
	}, mc)
	return err
}
