package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/api/handler"
	apimw "github.com/mediahub/library-notifier/internal/api/middleware"
	"github.com/mediahub/library-notifier/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.LibraryService,
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
	ih := handler.NewItemHandler(svc, logger)
	qh := handler.NewQueueHandler(svc)

	// --- routes ---
	r.Get("/health", handler.Health)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/library/items", func(r chi.Router) {
			r.Post("/", ih.Create)
			r.Get("/", ih.List)
			r.Get("/{id}", ih.GetByID)
			r.Put("/{id}/providers", ih.AttachProviders)
			r.Delete("/{id}", ih.Delete)
		})

		// Pending-notification queue snapshot
		r.Get("/queue", qh.Pending)
	})

	return r
}
