package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paystore/internal/history"
	"paystore/internal/models"
	"paystore/internal/payment"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
)

// PaymentService is the part of payment.Service the API drives.
type PaymentService interface {
	InitiatePurchase(ctx context.Context, productID, orderID string) <-chan payment.Result
	RestorePendingOrders(ctx context.Context) error
	RemoveOrder(ctx context.Context, orderID string) error
	Orders(ctx context.Context) ([]models.OrderRecord, error)
}

// HistoryReader serves journal queries.
type HistoryReader interface {
	QueryRecords(ctx context.Context, condition *history.QueryCondition) ([]*history.Record, error)
	Count(ctx context.Context, condition *history.QueryCondition) (int64, error)
	HealthCheck() error
}

// Server represents the HTTP server
type Server struct {
	router     *mux.Router
	addr       string
	payments   PaymentService
	journal    HistoryReader
	results    payment.Delegate
	waitLimit  time.Duration
	httpServer *http.Server
}

type Option func(*Server)

// WithJournal enables GET /history.
func WithJournal(j HistoryReader) Option {
	return func(s *Server) { s.journal = j }
}

// WithResults receives the outcome of purchases started through the API.
func WithResults(d payment.Delegate) Option {
	return func(s *Server) { s.results = d }
}

// WithWaitLimit bounds how long POST /orders?wait=true blocks.
func WithWaitLimit(d time.Duration) Option {
	return func(s *Server) { s.waitLimit = d }
}

// NewServer creates a new server instance
func NewServer(addr string, payments PaymentService, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		addr:      addr,
		payments:  payments,
		waitLimit: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.createOrder).Methods("POST")
	api.HandleFunc("/orders", s.listOrders).Methods("GET")
	api.HandleFunc("/orders/restore", s.restoreOrders).Methods("POST")
	api.HandleFunc("/orders/{orderId}", s.removeOrder).Methods("DELETE")

	api.HandleFunc("/history", s.queryHistory).Methods("GET")
	api.HandleFunc("/health", s.health).Methods("GET")
}

// GET /api/v1/health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"service": "ok"}
	if s.journal != nil {
		if err := s.journal.HealthCheck(); err != nil {
			glog.Warningf("journal health check failed: %v", err)
			status["journal"] = err.Error()
			s.sendResponse(w, http.StatusServiceUnavailable, false, "journal unavailable", status)
			return
		}
		status["journal"] = "ok"
	}
	s.sendResponse(w, http.StatusOK, true, "healthy", status)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. After Shutdown it returns nil at once.
func (s *Server) Start() error {
	glog.Infof("Starting server on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	glog.Infof("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// sendResponse sends a JSON response
func (s *Server) sendResponse(w http.ResponseWriter, statusCode int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{
		Success: success,
		Message: message,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		glog.Errorf("encode response: %v", err)
	}
}
