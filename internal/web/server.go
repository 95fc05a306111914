package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/pharmaflow/internal/service"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

// StatusSource reports per-collection synchronization state.
type StatusSource interface {
	Status() []syncer.CollectionStatus
	Synced() bool
}

type Server struct {
	service     *service.Service
	status      StatusSource
	alerts      *Alerts
	metrics     http.Handler
	mux         *http.ServeMux
	logger      *slog.Logger
	waitTimeout time.Duration
}

// NewServer wires the API routes. metrics may be nil.
func NewServer(svc *service.Service, status StatusSource, alerts *Alerts, metrics http.Handler, logger *slog.Logger) *Server {
	if alerts == nil {
		alerts = NewAlerts(DefaultAlertCapacity)
	}
	s := &Server{
		service:     svc,
		status:      status,
		alerts:      alerts,
		metrics:     metrics,
		mux:         http.NewServeMux(),
		logger:      logger,
		waitTimeout: 30 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/orders", s.handleListOrders)
	s.mux.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.mux.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	s.mux.HandleFunc("PUT /api/orders/{id}", s.handleEditOrder)
	s.mux.HandleFunc("DELETE /api/orders/{id}", s.handleDeleteOrder)
	s.mux.HandleFunc("PUT /api/orders/{id}/status", s.handleSetOrderStatus)
	s.mux.HandleFunc("PUT /api/orders/{id}/taken", s.handleSetOrderFlag("taken"))
	s.mux.HandleFunc("PUT /api/orders/{id}/delivered", s.handleSetOrderFlag("delivered"))
	s.mux.HandleFunc("POST /api/orders/{id}/items/{index}/highlight", s.handleToggleHighlight)
	s.mux.HandleFunc("PUT /api/orders/{id}/deadline", s.handleSetDeadline)
	s.mux.HandleFunc("GET /api/orders/{id}/share", s.handleOrderShare)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	s.mux.HandleFunc("GET /api/inventory", s.handleListInventory)
	s.mux.HandleFunc("POST /api/inventory", s.handleAddInventory)
	s.mux.HandleFunc("PATCH /api/inventory/{id}", s.handleUpdateInventory)
	s.mux.HandleFunc("DELETE /api/inventory/{id}", s.handleDeleteInventory)
	s.mux.HandleFunc("POST /api/inventory/import", s.handleImportInventory)
	s.mux.HandleFunc("GET /api/units", s.handleUnits)

	s.mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	s.mux.HandleFunc("POST /api/customers", s.handleAddCustomer)
	s.mux.HandleFunc("DELETE /api/customers/{id}", s.handleDeleteCustomer)
	s.mux.HandleFunc("POST /api/customers/import", s.handleImportCustomers)

	s.mux.HandleFunc("GET /api/employees", s.handleListEmployees)
	s.mux.HandleFunc("POST /api/employees", s.handleAddEmployee)
	s.mux.HandleFunc("DELETE /api/employees/{id}", s.handleDeleteEmployee)
	s.mux.HandleFunc("POST /api/employees/{id}/verify", s.handleVerifyEmployee)

	s.mux.HandleFunc("GET /api/history", s.handleListHistory)
	s.mux.HandleFunc("POST /api/history", s.handleSaveRequirement)
	s.mux.HandleFunc("GET /api/history/next-id", s.handleNextRequirementID)
	s.mux.HandleFunc("GET /api/history/{id}", s.handleGetRequirement)
	s.mux.HandleFunc("DELETE /api/history/{id}", s.handleDeleteRequirement)
	s.mux.HandleFunc("POST /api/history/{id}/pin", s.handleTogglePin)
	s.mux.HandleFunc("GET /api/history/{id}/companies", s.handleCompanies)
	s.mux.HandleFunc("GET /api/history/{id}/export", s.handleExportRequirement)
	s.mux.HandleFunc("GET /api/history/{id}/share", s.handleRequirementShare)

	s.mux.HandleFunc("GET /api/suggestions/items", s.handleSuggestItems)
	s.mux.HandleFunc("GET /api/suggestions/quantities", s.handleSuggestQuantities)

	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// HTTPServer returns a configured http.Server for addr. The caller owns
// ListenAndServe and Shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.waitTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
