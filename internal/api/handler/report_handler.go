package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/report"
	"github.com/limshub/vessel-queue/internal/service"
)

// ReportHandler serves queue contents as downloadable CSV or as a text
// table. Reports read a snapshot and never mutate queue state.
type ReportHandler struct {
	svc    *service.QueueService
	gen    *report.Generator
	logger *zap.Logger
}

func NewReportHandler(svc *service.QueueService, gen *report.Generator, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, gen: gen, logger: logger}
}

// QueueReport handles GET /api/v1/queues/{queueType}/report
// ?format=table returns the operator text table; the default is CSV.
func (h *ReportHandler) QueueReport(w http.ResponseWriter, r *http.Request) {
	qt := domain.QueueType(chi.URLParam(r, "queueType"))
	if !qt.IsValid() {
		respondError(w, http.StatusNotFound, domain.ErrInvalidQueueType.Error())
		return
	}

	views, err := h.svc.QueueView(r.Context(), qt, true)
	if err != nil {
		mapError(w, err)
		return
	}
	h.render(w, r, h.gen.ForQueue(qt, views), string(qt))
}

// GroupingReport handles GET /api/v1/groupings/{groupingID}/report
func (h *ReportHandler) GroupingReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GroupingView(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	h.render(w, r, h.gen.ForGrouping(*view), fmt.Sprintf("grouping-%d", id))
}

// FullReport handles GET /api/v1/report — every queue merged into one sheet.
func (h *ReportHandler) FullReport(w http.ResponseWriter, r *http.Request) {
	queues := make(map[domain.QueueType][]domain.GroupingWithEntries, len(domain.AllQueueTypes))
	for _, qt := range domain.AllQueueTypes {
		views, err := h.svc.QueueView(r.Context(), qt, true)
		if err != nil {
			mapError(w, err)
			return
		}
		queues[qt] = views
	}
	h.render(w, r, h.gen.Merged(queues), "all-queues")
}

func (h *ReportHandler) render(w http.ResponseWriter, r *http.Request, sheet report.Sheet, name string) {
	if r.URL.Query().Get("format") == "table" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, sheet.RenderTable())
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	fmt.Fprintln(w, sheet.RenderCSV())
}
