package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/authkeeper/internal/api/http/handler"
	"github.com/dtroode/authkeeper/internal/api/http/middleware"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// AuthPrefix is where the authentication routes are mounted.
const AuthPrefix = "/api/v1/auth"

// Router represents the public HTTP router.
type Router struct {
	authService    handler.AuthService
	sessionService handler.SessionService
	verifier       middleware.TokenVerifier
	contextManager model.ContextManager
	cookies        handler.Cookies
	health         http.Handler
	metrics        http.Handler
	observer       middleware.RequestObserver
	trustProxy     bool
	logger         *logger.Logger
}

// Options carry the optional collaborators of the router.
type Options struct {
	Health   http.Handler
	Metrics  http.Handler
	Observer middleware.RequestObserver
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites these headers.
	TrustProxy bool
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	sessionService handler.SessionService,
	verifier middleware.TokenVerifier,
	contextManager model.ContextManager,
	cookies handler.Cookies,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		sessionService: sessionService,
		verifier:       verifier,
		contextManager: contextManager,
		cookies:        cookies,
		health:         opts.Health,
		metrics:        opts.Metrics,
		observer:       opts.Observer,
		trustProxy:     opts.TrustProxy,
		logger:         logger,
	}
}

// Register builds the handler tree with request id, logging and recovery middleware.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger, r.observer)
	authenticate := middleware.NewAuthenticate(r.verifier, r.contextManager, r.logger)

	auth := handler.NewAuth(r.authService, handler.NewValidator(), r.cookies, AuthPrefix, r.logger)
	sessions := handler.NewSessions(r.sessionService, r.contextManager, r.cookies, r.logger)

	mux := chi.NewRouter()
	if r.trustProxy {
		mux.Use(chimiddleware.RealIP)
	}
	mux.Use(middleware.RequestID)
	mux.Use(logging.Handle)
	mux.Use(chimiddleware.Recoverer)

	if r.health != nil {
		mux.Method(http.MethodGet, "/healthz", r.health)
	}
	if r.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", r.metrics)
	}

	mux.Route(AuthPrefix, func(ar chi.Router) {
		ar.Post("/register", auth.Register)
		ar.Post("/login", auth.Login)
		ar.Post("/refresh-token", auth.RefreshToken)
		ar.Post("/logout", auth.Logout)

		ar.Group(func(pr chi.Router) {
			pr.Use(authenticate.Handle)
			pr.Get("/sessions", sessions.List)
			pr.Post("/sessions/revoke-all", sessions.RevokeAll)
			pr.Delete("/me", sessions.DeleteAccount)
		})

		ar.Get("/{provider}", auth.OAuthStart)
		ar.Get("/{provider}/callback", auth.OAuthCallback)
	})

	return mux
}
