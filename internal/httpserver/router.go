package httpserver

import (
	"net/http"

	"papertrader/internal/auth"
	"papertrader/internal/health"
	"papertrader/internal/sessions"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	SessionsHandler *sessions.Handler
	AdminHandler    *AdminHandler
	StreamHandler   http.Handler
	AuthService     *auth.Service
	Manager         *sessions.Manager
	AdminTokenHash  string
	CORSOrigin      string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = d.CORSOrigin
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", health.Handler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", d.SessionsHandler.Create)
		r.Get("/stream/ws", d.StreamHandler.ServeHTTP)

		withS := func(next sessionHandler) http.HandlerFunc {
			return withSession(d.AuthService, d.Manager, next)
		}
		r.Delete("/sessions", withS(d.SessionsHandler.Delete))
		r.Post("/orders", withS(d.SessionsHandler.PlaceOrder))
		r.Get("/account", withS(d.SessionsHandler.Account))
		r.Get("/trades", withS(d.SessionsHandler.Trades))
		r.Post("/risk", withS(d.SessionsHandler.ConfigureRisk))
		r.Post("/strategy", withS(d.SessionsHandler.SetStrategy))
		r.Post("/autotrader/start", withS(d.SessionsHandler.StartAutoTrader))
		r.Post("/autotrader/stop", withS(d.SessionsHandler.StopAutoTrader))

		r.Group(func(r chi.Router) {
			r.Use(withAdmin(d.AdminTokenHash))
			r.Get("/admin/feed", d.AdminHandler.GetFeed)
			r.Post("/admin/feed", d.AdminHandler.SetFeed)
		})
	})

	return r
}
