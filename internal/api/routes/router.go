package routes

import (
	"net/http"

	"github.com/vitalscan/breathmon/backend/internal/api/handlers"
	"github.com/vitalscan/breathmon/backend/internal/api/middleware"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	reportHandler  *handlers.ReportHandler
	patientHandler *handlers.PatientHandler
	sseHandler     *handlers.SSEHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	reportHandler *handlers.ReportHandler,
	patientHandler *handlers.PatientHandler,
	sseHandler *handlers.SSEHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		reportHandler:  reportHandler,
		patientHandler: patientHandler,
		sseHandler:     sseHandler,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Report endpoints
	r.mux.HandleFunc("POST /api/reports", r.reportHandler.CreateReport)
	r.mux.HandleFunc("GET /api/reports/{id}", r.reportHandler.GetReport)
	r.mux.HandleFunc("GET /api/reports/{id}/slots/{slot}/status", r.reportHandler.GetSlotStatus)
	r.mux.HandleFunc("POST /api/reports/{id}/slots/{slot}/regenerate", r.reportHandler.RegenerateSlot)
	r.mux.HandleFunc("PATCH /api/reports/{id}/annotations", r.reportHandler.UpdateAnnotations)

	// Patient monitoring endpoints
	r.mux.HandleFunc("GET /api/patients", r.patientHandler.ListPatients)
	r.mux.HandleFunc("GET /api/patients/{mobile}", r.patientHandler.GetPatient)

	// Real-time report updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/reports/{id}", r.sseHandler.StreamReportUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
