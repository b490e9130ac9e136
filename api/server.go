/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     zap request logging (method, path, status, duration)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/sites/*            On-site balances and histories
  /api/stock/*            On-site summary
  /api/warehouse/*        Pressing warehouse views and manual movements
  /api/movements/*        On-site manual movements
  /api/deliveries/*       Farmer deliveries
  /api/transfers/*        Site transfers and their status machine
  /api/pressing-slips/*   Pressing runs and returns to site
  /api/export-documents/* Export shipments
  /api/exports/*          CSV / XLSX downloads
  /api/scenarios/*        Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures cross-cutting behavior of the router.
type RouterOptions struct {
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/sites/{site}/materials/{material}/balance", h.GetSiteBalance)
		r.Get("/sites/{site}/materials/{material}/history", h.GetSiteHistory)
		r.Get("/stock/summary", h.GetStockSummary)
		r.Get("/exports/history.{format}", h.ExportHistory)
		r.Get("/diagnostics/store", h.GetStoreStatus)

		r.Route("/movements", func(r chi.Router) {
			r.Post("/initial", h.RecordInitialStock)
			r.Post("/adjustments", h.RecordAdjustment)
		})

		r.Route("/warehouse", func(r chi.Router) {
			r.Get("/summary", h.GetWarehouseSummary)
			r.Get("/{material}/{grade}/history", h.GetWarehouseHistory)
			r.Post("/initial", h.RecordInitialPressedStock)
			r.Post("/adjustments", h.RecordPressedAdjustment)
		})

		r.Post("/bagging-transfers", h.RecordBaggingTransfer)

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", h.ListDeliveries)
			r.Post("/", h.RecordDelivery)
			r.Delete("/{id}", h.DeleteDelivery)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Get("/{id}", h.GetTransfer)
			r.Post("/{id}/status", h.AdvanceTransfer)
		})

		r.Route("/pressing-slips", func(r chi.Router) {
			r.Get("/", h.ListPressingSlips)
			r.Post("/", h.CreatePressingSlip)
			r.Put("/{id}", h.UpdatePressingSlip)
			r.Delete("/{id}", h.DeletePressingSlip)
			r.Post("/{id}/returns", h.RecordReturn)
		})

		r.Route("/export-documents", func(r chi.Router) {
			r.Get("/", h.ListExportDocuments)
			r.Post("/", h.CreateExportDocument)
			r.Put("/{id}", h.UpdateExportDocument)
			r.Delete("/{id}", h.DeleteExportDocument)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
