package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Webhooks      *PaymentWebhookHandler
	Health        *HealthHandler
	WebhookSecret string
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) *mux.Router {
	logger := defaultLogger(cfg.Logger)
	r := mux.NewRouter()

	r.Use(Recoverer(logger))
	for _, mw := range cfg.Middleware {
		r.Use(mux.MiddlewareFunc(mw))
	}

	if cfg.Health != nil {
		r.HandleFunc("/healthz", cfg.Health.Check).Methods(http.MethodGet)
	}

	if cfg.Webhooks != nil {
		hooks := r.PathPrefix("/webhooks").Subrouter()
		hooks.Use(mux.MiddlewareFunc(RequireWebhookSecret(cfg.WebhookSecret, logger)))
		hooks.HandleFunc("/payments", cfg.Webhooks.Receive).Methods(http.MethodPost)
	}

	responder := newResponder(logger)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusNotFound, errorResponse{ErrorCode: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusMethodNotAllowed, errorResponse{ErrorCode: "method_not_allowed", Message: "method not allowed"})
	})
	return r
}
