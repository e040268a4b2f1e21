package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/api/handler"
	apimw "github.com/limshub/vessel-queue/internal/api/middleware"
	"github.com/limshub/vessel-queue/internal/ratelimiter"
	"github.com/limshub/vessel-queue/internal/report"
	"github.com/limshub/vessel-queue/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.QueueService,
	gen *report.Generator,
	limiter *ratelimiter.QueueLimiters,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(svc, logger)
	rh := handler.NewReportHandler(svc, gen, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queues", qh.Counts)
		r.Get("/report", rh.FullReport)

		r.Route("/queues/{queueType}", func(r chi.Router) {
			r.Get("/", qh.View)
			r.Get("/report", rh.QueueReport)

			// Mutations share the per-queue-type rate limit.
			r.Group(func(r chi.Router) {
				r.Use(apimw.QueueRateLimit(limiter))
				r.Post("/enqueue", qh.Enqueue)
				r.Post("/exclusions", qh.Exclude)
				r.Post("/completions", qh.Complete)
				r.Post("/groupings/{groupingID}/top", qh.MoveToTop)
				r.Post("/groupings/{groupingID}/bottom", qh.MoveToBottom)
				r.Post("/groupings/{groupingID}/position", qh.Reorder)
				r.Post("/groupings/{groupingID}/requeue", qh.Requeue)
			})
		})

		r.Get("/groupings/{groupingID}", qh.ViewGrouping)
		r.Get("/groupings/{groupingID}/report", rh.GroupingReport)
		r.Post("/groupings/{groupingID}/rename", qh.Rename)
	})

	return r
}
