package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"phonebuddy/internal/handler"
	"phonebuddy/internal/httputil"
	authmw "phonebuddy/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AdminHandler  *handler.AdminHandler
	DeviceHandler *handler.DeviceHandler
	JWTSecret     string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Everything else requires authentication.
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/admin/send", cfg.AdminHandler.ManualSend)
		r.Get("/admin/deliveries", cfg.AdminHandler.ListDeliveries)

		r.Put("/rooms/{code}/devices/{id}/token", cfg.DeviceHandler.RefreshToken)
	})

	return r
}
