package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Orders       OrderActions
	Partners     PartnerActions
	Reassignment CycleRunner
	DB           Pinger
	Gatherer     prometheus.Gatherer
	CORSOrigins  []string
	Logger       *slog.Logger
}

// NewRouter wires every route behind the CORS and request logging middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	if cfg.DB != nil {
		r.Get("/ready", ReadyHandler(cfg.DB))
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", HandleCreateOrder(cfg.Orders))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", HandleGetOrder(cfg.Orders))
				r.Post("/assign", HandleAssignOrder(cfg.Orders))
				r.Post("/confirm", HandleConfirmAssignment(cfg.Orders))
				r.Post("/decline", HandleDeclineAssignment(cfg.Orders))
				r.Post("/complete", HandleCompleteOrder(cfg.Orders))
				r.Post("/cancel", HandleCancelOrder(cfg.Orders))
			})
		})

		r.Put("/partners/{partnerID}/availability", HandleSetAvailability(cfg.Partners))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/partner-documents", HandleListPartnerDocuments(cfg.Partners))
			r.Post("/partners/{id}/verify", HandleVerifyDocument(cfg.Partners))
			r.Post("/partners/{id}/decline", HandleDeclinePartner(cfg.Partners))
			r.Post("/reassignments/run", HandleRunReassignment(cfg.Reassignment))
		})
	})

	return RequestLogger(CORS(cfg.CORSOrigins, r), cfg.Logger)
}
