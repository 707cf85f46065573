// Package server is the HTTP surface of the session gateway: the login,
// logout, and session endpoints, plus the access guard that fronts every
// protected route prefix.
package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coursedeck/authgate/backend"
	"github.com/coursedeck/authgate/internal/config"
	"github.com/coursedeck/authgate/sessions"
	"github.com/coursedeck/authgate/token"
)

type Server struct {
	env     string
	mux     *http.ServeMux
	handler http.Handler
	routes  []string

	config  config.Config
	cookies *sessions.CookieStore
	tokens  *token.Codec
	backend *backend.Client
	guard   *Guard
	log     zerolog.Logger
}

func New(cfg config.Config, backendClient *backend.Client, tokens *token.Codec, cookies *sessions.CookieStore, rules []GuardRule, log zerolog.Logger) *Server {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		cookies: cookies,
		tokens:  tokens,
		backend: backendClient,
		guard:   NewGuard(rules, cookies, tokens),
		log:     log,
	}

	s.initRoutes()
	s.logRoutes()
	// The guard runs before any route handler so protected prefixes are
	// gated even when no explicit route matches.
	s.handler = s.guard.Middleware(s.mux)
	return s
}

// logRoutes lists the registered routes at startup, development only.
func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		s.log.Debug().Str("route", route).Msg("registered")
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.baseMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUnauthorized, ChainMiddleware(s.UnauthorizedHandler(), s.baseMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.baseMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.baseMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthSession, ChainMiddleware(s.SessionInfoHandler(), s.baseMiddleware()...))

	// Guarded pages. The guard itself runs in front of the mux; these just
	// have to exist for the admin surface.
	s.RegisterRouteFunc("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.baseMiddleware()...))
}
