package http

import (
	"net/http"

	"go-clinic-queue/internal/delivery/http/handler"
	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/domain/entity"

	"github.com/gorilla/mux"
)

const (
	apiPrefix   = "/api/v1"
	feedsPrefix = apiPrefix + "/feeds"
)

type Router struct {
	router            *mux.Router
	serviceHandler    *handler.ServiceHandler
	queueHandler      *handler.QueueHandler
	auditLogHandler   *handler.AuditLogHandler
	feedHandler       *handler.FeedHandler
	authMiddleware    *middleware.AuthMiddleware
	corsMiddleware    *middleware.CORSMiddleware
	loggingMiddleware *middleware.LoggingMiddleware
}

func NewRouter(
	serviceHandler *handler.ServiceHandler,
	queueHandler *handler.QueueHandler,
	auditLogHandler *handler.AuditLogHandler,
	feedHandler *handler.FeedHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggingMiddleware *middleware.LoggingMiddleware,
) *Router {
	return &Router{
		router:            mux.NewRouter(),
		serviceHandler:    serviceHandler,
		queueHandler:      queueHandler,
		auditLogHandler:   auditLogHandler,
		feedHandler:       feedHandler,
		authMiddleware:    authMiddleware,
		corsMiddleware:    corsMiddleware,
		loggingMiddleware: loggingMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix(apiPrefix).Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Service lifecycle
	services := api.PathPrefix("/services").Subrouter()
	services.Use(r.authMiddleware.Authenticate)
	services.Use(middleware.RequireStaff)
	services.Handle("", middleware.RequireReception(http.HandlerFunc(r.serviceHandler.CreateService))).Methods(http.MethodPost)
	services.HandleFunc("/{id}", r.serviceHandler.GetService).Methods(http.MethodGet)
	services.HandleFunc("/{id}/start", r.serviceHandler.StartService).Methods(http.MethodPost)
	services.HandleFunc("/{id}/complete", r.serviceHandler.CompleteService).Methods(http.MethodPost)
	services.Handle("/{id}/cancel", middleware.RequireRole(entity.RoleReception, entity.RoleDoctor)(http.HandlerFunc(r.serviceHandler.CancelService))).Methods(http.MethodPost)
	services.HandleFunc("/{id}/items", r.serviceHandler.AddLineItem).Methods(http.MethodPost)
	services.Handle("/{id}/payment-status", middleware.RequireReception(http.HandlerFunc(r.serviceHandler.UpdatePaymentStatus))).Methods(http.MethodPut)
	services.HandleFunc("/{id}/financial-status", r.serviceHandler.GetFinancialStatus).Methods(http.MethodGet)

	// Daily queue
	queue := api.PathPrefix("/queue").Subrouter()
	queue.Use(r.authMiddleware.Authenticate)
	queue.Use(middleware.RequireStaff)
	queue.HandleFunc("", r.queueHandler.ListQueue).Methods(http.MethodGet)
	queue.HandleFunc("/attending", r.queueHandler.CurrentlyAttending).Methods(http.MethodGet)
	queue.Handle("/check-in", middleware.RequireReception(http.HandlerFunc(r.queueHandler.CheckIn))).Methods(http.MethodPost)
	queue.Handle("/call-next", middleware.RequireRole(entity.RoleReception, entity.RoleDoctor)(http.HandlerFunc(r.queueHandler.CallNext))).Methods(http.MethodPost)
	queue.Handle("/{id}/done", middleware.RequireRole(entity.RoleReception, entity.RoleDoctor)(http.HandlerFunc(r.queueHandler.MarkDone))).Methods(http.MethodPost)

	// Audit trail
	audit := api.PathPrefix("/audit-logs").Subrouter()
	audit.Use(r.authMiddleware.Authenticate)
	audit.Use(middleware.RequireStaff)
	audit.HandleFunc("", r.auditLogHandler.GetRecentAuditLogs).Methods(http.MethodGet)
	audit.HandleFunc("/{type}/{id}", r.auditLogHandler.GetEntityHistory).Methods(http.MethodGet)

	// Live feeds (SockJS). The public display board needs no token.
	r.router.PathPrefix(feedsPrefix + "/public").Handler(r.feedHandler.Public(feedsPrefix + "/public"))
	r.router.PathPrefix(feedsPrefix + "/reception").Handler(r.staffFeed(r.feedHandler.Reception(feedsPrefix+"/reception"), entity.RoleReception))
	r.router.PathPrefix(feedsPrefix + "/medication").Handler(r.staffFeed(r.feedHandler.Medication(feedsPrefix+"/medication"), entity.RoleMedication, entity.RoleReception))
	r.router.PathPrefix(feedsPrefix + "/doctor").Handler(r.staffFeed(r.feedHandler.Doctor(feedsPrefix+"/doctor"), entity.RoleDoctor))

	r.router.Use(r.loggingMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) staffFeed(h http.Handler, roles ...string) http.Handler {
	return r.authMiddleware.Authenticate(middleware.RequireRole(roles...)(h))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
