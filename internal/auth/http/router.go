package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth/service"
	"github.com/shelfmark/shelfmark/internal/auth/store"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/httpx"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger    *slog.Logger
	startTime time.Time

	store store.Store

	AuthService    *service.AuthService
	Authenticators service.Chain
	Advisor        *token.Advisor
	Tracker        *token.Tracker

	// LoginLimit overrides the default credential-endpoint rate limit.
	LoginLimit httpx.RateLimitConfig
}

func NewRouter(st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		logger:    logger,
		startTime: time.Now(),
		store:     st,
	}

	// Default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	loginHandler := &LoginHandler{AuthService: r.AuthService}
	refreshHandler := &RefreshHandler{AuthService: r.AuthService}
	logoutHandler := &LogoutHandler{AuthService: r.AuthService}
	meHandler := &MeHandler{Store: r.store}

	// Credential endpoints get the strict limit (brute force prevention).
	loginLimit := r.LoginLimit
	if loginLimit.RequestsPerWindow == 0 {
		loginLimit = httpx.StrictLimit
	}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(loginLimit),
		))
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(loginLimit),
		))

	authn := httpx.AuthnMiddleware(r.Authenticators, r.Advisor, r.Tracker)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler, authn))
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(meHandler,
			authn,
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.PrincipalKeyExtractor),
		))

	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"uptime": time.Since(r.startTime).Round(time.Second).String(),
		})
	})

	r.Mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := r.store.Ping(req.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
