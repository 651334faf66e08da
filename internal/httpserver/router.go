package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"retrocede/internal/auth"
	"retrocede/internal/health"
	"retrocede/internal/httputil"
	"retrocede/internal/orders"
	"retrocede/internal/quotes"
)

type RouterDeps struct {
	AuthHandler   *auth.Handler
	OrderHandler  *orders.Handler
	QuoteHandler  *quotes.Handler
	HealthHandler *health.Handler
	AuthService   *auth.Service
	AllowOrigin   string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware(d.AllowOrigin))
	r.Use(SecurityHeaders)
	r.Use(RateLimit)

	r.Get("/health/live", d.HealthHandler.Live)
	r.Get("/health/ready", d.HealthHandler.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Get("/quote", d.QuoteHandler.Get)
		r.Get("/quote/ws", d.QuoteHandler.WS.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", withUser(d.AuthHandler.Me))
			r.Get("/portfolio", withUser(d.OrderHandler.Portfolio))
			r.Get("/transactions", withUser(d.OrderHandler.Transactions))
			r.Post("/orders", withUser(d.OrderHandler.Place))
		})
	})

	return r
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, userID)
	}
}

func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
