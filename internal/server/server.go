// Package server wires the site's HTTP surface: public pages, the gated
// admin API, uploads and the infrastructure probes.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/audit"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/auth"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/config"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/content"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/httputil"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/site"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/upload"
)

const (
	// maxJSONBody caps admin JSON requests.
	maxJSONBody int64 = 1 << 20

	// maxUploadBody leaves room for multipart framing around the largest
	// allowed file.
	maxUploadBody = upload.MaxPDFSize + 1<<20

	readinessTimeout = 2 * time.Second
)

// Server holds the HTTP handler and everything the handlers need.
type Server struct {
	catalog *content.Catalog
	store   kvstore.Store
	cfg     config.Config

	auth    *auth.Authenticator
	site    *site.Site
	uploads *upload.Store
	prober  *upload.Prober
	audit   *audit.Logger
	logger  zerolog.Logger

	version   string
	commit    string
	buildDate string
	router    chi.Router
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithAuthenticator replaces the Authenticator built from config.
func WithAuthenticator(a *auth.Authenticator) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithAuditLogger sets the audit logger for admin writes.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Server) {
		s.audit = l
	}
}

// WithLogger sets the base request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New constructs a fully configured Server. st is the handle the catalog
// writes through; it is also pinged by the readiness probe.
func New(cat *content.Catalog, st kvstore.Store, cfg config.Config, version, commit, buildDate string, opts ...Option) (*Server, error) {
	s := &Server{
		catalog:   cat,
		store:     st,
		cfg:       cfg,
		uploads:   upload.NewStore(cfg.PublicDir),
		prober:    upload.NewProber(cfg.PDFAllowedHosts, cfg.ProbeTimeout),
		logger:    log.Logger,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.auth == nil {
		a, err := auth.New(cfg, auth.WithLogger(s.logger.With().Str("component", "auth").Logger()))
		if err != nil {
			return nil, err
		}
		s.auth = a
	}
	if s.audit == nil {
		s.audit = audit.NewLogger(s.logger)
	}

	pages, err := site.New(cat, s.logger)
	if err != nil {
		return nil, err
	}
	s.site = pages

	s.router = s.buildRouter()
	return s, nil
}

// Router returns the underlying chi.Router so it can be used by http.Server.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(httputil.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLogger(s.logger))
	r.Use(httputil.Recoverer)
	r.Use(httputil.SecureHeaders)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	// Infrastructure probes.
	r.Method(http.MethodGet, "/health", httputil.HealthHandler())
	r.Method(http.MethodGet, "/readiness", httputil.ReadinessHandler(s.checkReady))
	r.Method(http.MethodGet, "/version", httputil.VersionHandler(s.version, s.commit, s.buildDate))

	// Sign-in flow.
	r.Get(auth.SignInPath, s.auth.SignIn)
	r.Get(auth.CallbackPath, s.auth.Callback)
	r.Get(auth.SignOutPath, s.auth.SignOut)
	r.Post(auth.SignOutPath, s.auth.SignOut)

	// Public pages and uploaded files.
	s.site.Mount(r)
	r.Handle(upload.URLPrefix+"/*", http.StripPrefix(upload.URLPrefix, noDirListing(http.FileServer(http.Dir(s.uploads.Root())))))

	// Admin area.
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Gate)
		r.Use(httputil.NoStore)

		r.Get("/admin", s.site.Dashboard)
		r.HandleFunc("/admin/*", s.handleNotFound)

		r.Route("/api/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(httputil.BodyLimit(maxJSONBody))

				mountCollection(s, r, s.catalog.Programs)
				mountCollection(s, r, s.catalog.Research)
				mountCollection(s, r, s.catalog.Testimonials)
				mountCollection(s, r, s.catalog.Gallery)
				mountCollection(s, r, s.catalog.Jobs)
				mountCollection(s, r, s.catalog.Team)

				r.Post("/pdf-info", s.handlePDFInfo)
				r.Post("/migrate", s.handleMigrate)
			})

			r.Group(func(r chi.Router) {
				r.Use(httputil.BodyLimit(maxUploadBody))

				r.Post("/upload/image", s.handleUploadImage)
				r.Post("/upload/pdf", s.handleUploadPDF)
			})
		})
	})

	return r
}

// checkReady reports whether the content store answers.
func (s *Server) checkReady() error {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()
	return s.store.Ping(ctx)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if httputil.WantsJSON(r) {
		httputil.RespondProblemf(w, r, http.StatusNotFound, "no route for %s %s", r.Method, r.URL.Path)
		return
	}
	s.site.NotFound(w, r)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.RespondProblemf(w, r, http.StatusMethodNotAllowed, "method %s is not allowed on %s", r.Method, r.URL.Path)
}

// noDirListing answers 404 for directory paths instead of an index page.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
