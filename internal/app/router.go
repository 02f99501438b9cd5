package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/profitpulse/profitpulse/internal/catalog"
	"github.com/profitpulse/profitpulse/internal/customers"
	"github.com/profitpulse/profitpulse/internal/invoices"
	"github.com/profitpulse/profitpulse/internal/returns"
	"github.com/profitpulse/profitpulse/internal/staff"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	CustomersHandler *customers.Handler
	InvoicesHandler  *invoices.Handler
	ReturnsHandler   *returns.Handler
	StaffHandler     *staff.Handler
}

// NewRouter constructs the chi.Router with application defaults.
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

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(TokenAuth(params.Config.APIToken))
		r.Use(TenantResolver(params.Logger))

		params.CatalogHandler.MountRoutes(r)
		params.CustomersHandler.MountRoutes(r)
		params.InvoicesHandler.MountRoutes(r)
		params.ReturnsHandler.MountRoutes(r)
		params.StaffHandler.MountRoutes(r)
	})

	return r
}
