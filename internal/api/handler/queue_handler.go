package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/limshub/vessel-queue/internal/api/middleware"
	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/service"
)

// QueueHandler exposes the queue engine's mutating and read operations.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// queueType pulls and validates the {queueType} URL parameter. A nil return
// means the response has already been written.
func (h *QueueHandler) queueType(w http.ResponseWriter, r *http.Request) (domain.QueueType, bool) {
	qt := domain.QueueType(chi.URLParam(r, "queueType"))
	if !qt.IsValid() {
		respondError(w, http.StatusNotFound, domain.ErrInvalidQueueType.Error())
		return "", false
	}
	return qt, true
}

func parseGroupingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupingID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid grouping id")
		return 0, false
	}
	return id, true
}

// Counts handles GET /api/v1/queues
func (h *QueueHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"queues": counts})
}

// View handles GET /api/v1/queues/{queueType}
// ?all=true includes completed and excluded groupings.
func (h *QueueHandler) View(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	activeOnly := r.URL.Query().Get("all") != "true"
	views, err := h.svc.QueueView(r.Context(), qt, activeOnly)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_type": qt,
		"groupings":  views,
	})
}

// ViewGrouping handles GET /api/v1/groupings/{groupingID}
func (h *QueueHandler) ViewGrouping(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GroupingView(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Enqueue handles POST /api/v1/queues/{queueType}/enqueue
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mc := domain.NewMessageCollection()
	g, err := h.svc.Enqueue(r.Context(), qt, req, mc)
	if err != nil && !mc.HasErrors() {
		h.logger.Error("enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("queue_type", string(qt)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	payload := map[string]any{}
	if g != nil {
		payload["grouping"] = g
	}
	respondMessages(w, mc, payload)
}

// Exclude handles POST /api/v1/queues/{queueType}/exclusions
func (h *QueueHandler) Exclude(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	var req domain.ExcludeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mc := domain.NewMessageCollection()
	if err := h.svc.Exclude(r.Context(), req.VesselKeys, qt, mc); err != nil {
		h.logger.Error("exclude failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("queue_type", string(qt)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}

// Complete handles POST /api/v1/queues/{queueType}/completions
func (h *QueueHandler) Complete(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	var req domain.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mc := domain.NewMessageCollection()
	if err := h.svc.Complete(r.Context(), qt, req, mc); err != nil {
		h.logger.Error("complete failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("queue_type", string(qt)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}

// MoveToTop handles POST /api/v1/queues/{queueType}/groupings/{groupingID}/top
func (h *QueueHandler) MoveToTop(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.svc.MoveToTop)
}

// MoveToBottom handles POST /api/v1/queues/{queueType}/groupings/{groupingID}/bottom
func (h *QueueHandler) MoveToBottom(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.svc.MoveToBottom)
}

func (h *QueueHandler) move(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, qt domain.QueueType, groupingID int64, mc *domain.MessageCollection) error,
) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	mc := domain.NewMessageCollection()
	if err := op(r.Context(), qt, id, mc); err != nil {
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}

// Reorder handles POST /api/v1/queues/{queueType}/groupings/{groupingID}/position
func (h *QueueHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	var req domain.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mc := domain.NewMessageCollection()
	if err := h.svc.Reorder(r.Context(), qt, id, req.Position, mc); err != nil {
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}

// Requeue handles POST /api/v1/queues/{queueType}/groupings/{groupingID}/requeue
func (h *QueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	qt, ok := h.queueType(w, r)
	if !ok {
		return
	}
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	mc := domain.NewMessageCollection()
	if err := h.svc.Requeue(r.Context(), qt, id, mc); err != nil {
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}

// Rename handles POST /api/v1/groupings/{groupingID}/rename
func (h *QueueHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGroupingID(w, r)
	if !ok {
		return
	}
	var req domain.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mc := domain.NewMessageCollection()
	if err := h.svc.RenameGrouping(r.Context(), id, req.Name, mc); err != nil {
		mapError(w, err)
		return
	}
	respondMessages(w, mc, nil)
}
