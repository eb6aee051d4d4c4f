package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/labstock/pkg/audit"
	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/middleware"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

// AuditLog reads the audit trail
type AuditLog interface {
	Search(ctx context.Context, db dbx.DBTX, f audit.SearchFilter) ([]*audit.Record, error)
	Count(ctx context.Context, db dbx.DBTX, f audit.SearchFilter) (int64, error)
}

// Options carries the dependencies of a Server
type Options struct {
	DB    *sql.DB
	Store *storage.Store
	// Tracker defaults to a tracker over Store's dialect.
	Tracker *audit.DBTracker
	Config  *config.Config
	// Limiter guards sign-in. Nil disables rate limiting.
	Limiter middleware.Limiter
	Metrics *observability.Metrics
	// Tracing wraps each request transaction in a span. Nil uses the global
	// provider.
	Tracing *observability.Tracing
	Logger  *observability.Logger
}

// Server represents the labstock API server
type Server struct {
	db       *sql.DB
	users    storage.UserStore
	groups   storage.GroupStore
	tokens   storage.TokenStore
	items    storage.ItemStore
	tracker  audit.Tracker
	auditLog AuditLog
	resolver *auth.Resolver
	hasher   *auth.Hasher
	tokenGen *auth.TokenGenerator
	cfg      *config.Config
	perms    config.Permissions
	limiter  middleware.Limiter
	metrics  *observability.Metrics
	tracer   trace.Tracer
	logger   *observability.Logger
	router   *mux.Router
}

// NewServer creates a new API server with every route registered
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = audit.NewDBTracker(opts.Store.Builder())
	}

	s := &Server{
		db:       opts.DB,
		users:    opts.Store,
		groups:   opts.Store,
		tokens:   opts.Store,
		items:    opts.Store,
		tracker:  tracker,
		auditLog: tracker,
		resolver: auth.NewResolver(opts.Store, opts.Config.Auth.SessionIdleTimeout),
		hasher:   auth.NewHasher(opts.Config.Auth.BcryptCost),
		tokenGen: auth.NewTokenGenerator(),
		cfg:      opts.Config,
		perms:    opts.Config.Permissions,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		tracer:   opts.Tracing.Tracer(),
		logger:   logger,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// Router returns the router so operational endpoints can be mounted
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes. The .count and .list routes
// are registered before the {name} routes they would otherwise match.
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.write(w, fail(httputil.TagNotFound, nil))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteEnvelope(w, httputil.Envelope{
			Code:    http.StatusMethodNotAllowed,
			Error:   httputil.TagBadFormat,
			Message: s.cfg.Messages.BadFormat,
		})
	})

	api := s.router.NewRoute().Subrouter()
	api.Use(mux.MiddlewareFunc(httputil.ContentTypeMiddleware(s.cfg.Messages.BadFormat)))

	// User routes
	api.Handle("/users/.count", s.handle(s.countUsers)).Methods(http.MethodGet)
	api.Handle("/users/.list", s.handle(s.listUsers)).Methods(http.MethodGet)
	api.Handle("/users/{name}", s.handle(s.getUser)).Methods(http.MethodGet)
	api.Handle("/users/{name}", s.handle(s.createUser)).Methods(http.MethodPost)
	api.Handle("/users/{name}", s.handle(s.deleteUser)).Methods(http.MethodDelete)
	api.Handle("/users/{name}", s.handle(s.patchUser)).Methods(http.MethodPatch)

	// Token routes
	api.Handle("/users/{name}/token", s.signInLimit(s.handle(s.signIn))).Methods(http.MethodPut)
	api.Handle("/users/{name}/token", s.handle(s.signOut)).Methods(http.MethodDelete)

	// Group routes
	api.Handle("/groups/.count", s.handle(s.countGroups)).Methods(http.MethodGet)
	api.Handle("/groups/.list", s.handle(s.listGroups)).Methods(http.MethodGet)
	api.Handle("/groups/{name}", s.handle(s.getGroup)).Methods(http.MethodGet)
	api.Handle("/groups/{name}", s.handle(s.createGroup)).Methods(http.MethodPost)
	api.Handle("/groups/{name}", s.handle(s.deleteGroup)).Methods(http.MethodDelete)
	api.Handle("/groups/{name}", s.handle(s.patchGroup)).Methods(http.MethodPatch)

	// Item routes
	api.Handle("/items", s.handle(s.createItem)).Methods(http.MethodPost)
	api.Handle("/items/.count", s.handle(s.countItems)).Methods(http.MethodGet)
	api.Handle("/items/.list", s.handle(s.listItems)).Methods(http.MethodGet)
	api.Handle("/items/{id:[0-9]+}", s.handle(s.getItem)).Methods(http.MethodGet)
	api.Handle("/items/{id:[0-9]+}", s.handle(s.patchItem)).Methods(http.MethodPatch)
	api.Handle("/items/{id:[0-9]+}", s.handle(s.deleteItem)).Methods(http.MethodDelete)

	// Audit routes
	api.Handle("/audit/.count", s.handle(s.countAudit)).Methods(http.MethodGet)
	api.Handle("/audit/.list", s.handle(s.listAudit)).Methods(http.MethodGet)
}

// signInLimit keys attempts on client address and principal name
func (s *Server) signInLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	key := func(r *http.Request) string {
		return middleware.ClientKey(r) + ":user:" + strings.ToLower(mux.Vars(r)["name"])
	}
	return middleware.RateLimitMiddleware(s.limiter, s.cfg.Auth.SignInLimit.Window, key, s.cfg.Messages.TooManyRequests)(next)
}
