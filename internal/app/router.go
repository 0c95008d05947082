package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ayesh156/eco-system-sub002/internal/customers"
	"github.com/ayesh156/eco-system-sub002/internal/grn"
	"github.com/ayesh156/eco-system-sub002/internal/invoices"
	"github.com/ayesh156/eco-system-sub002/internal/products"
	"github.com/ayesh156/eco-system-sub002/internal/reminders"
	"github.com/ayesh156/eco-system-sub002/internal/suppliers"
	"github.com/ayesh156/eco-system-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	InvoiceHandler  *invoices.Handler
	CustomerHandler *customers.Handler
	ProductHandler  *products.Handler
	SupplierHandler *suppliers.Handler
	GRNHandler      *grn.Handler
	ReminderHandler *reminders.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.InvoiceHandler != nil {
			params.InvoiceHandler.MountRoutes(r)
		}
		if params.CustomerHandler != nil {
			params.CustomerHandler.MountRoutes(r)
		}
		if params.ProductHandler != nil {
			params.ProductHandler.MountRoutes(r)
		}
		if params.SupplierHandler != nil {
			params.SupplierHandler.MountRoutes(r)
		}
		if params.GRNHandler != nil {
			params.GRNHandler.MountRoutes(r)
		}
		if params.ReminderHandler != nil {
			params.ReminderHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
