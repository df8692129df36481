// Package server is the composition root: it opens storage, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// Wiring order matters in one place. The session guard registers itself
// with the identity provider before any route is served, so no sign-in can
// complete without passing the whitelist check.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/family-catalog/internal/auth"
	"github.com/sakif/family-catalog/internal/blob"
	"github.com/sakif/family-catalog/internal/config"
	"github.com/sakif/family-catalog/internal/handler"
	"github.com/sakif/family-catalog/internal/middleware"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/service"
	"github.com/sakif/family-catalog/internal/session"
)

// mediaPrefix is the route uploaded files are served from.
const mediaPrefix = "/media/"

type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	backend *Backend

	provider  *auth.LocalProvider
	sessions  *session.State
	stopAudit func()
}

// New opens storage and wires every layer. Close (or Start, which closes on
// return) releases the storage.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	backend, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		backend:  backend,
		sessions: session.NewState(),
	}

	if err := s.setupRoutes(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	cfg := s.config
	store := s.backend.Store

	// === Repositories ===
	whitelist := repository.NewKVWhitelist(store)
	pending := repository.NewKVPendingRequests(store)
	profiles := repository.NewKVProfiles(store)
	repairs := repository.NewKVRepairs(store)
	objects := repository.NewKVObjects(store)
	producers := repository.NewKVProducers(store)
	revocations := repository.NewKVRevocations(store)

	blobs, err := blob.NewFS(cfg.MediaDir, mediaPrefix)
	if err != nil {
		return err
	}

	// === Identity provider ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	mailer, err := s.newMailer()
	if err != nil {
		return err
	}
	s.provider = auth.NewLocalProvider(
		s.backend.Accounts, revocations, auth.NewPasswordService(), tokens, mailer, cfg.PublicURL, s.logger,
	)

	// === Services ===
	retry := service.DefaultRetryPolicy()
	retry.MaxRetries = cfg.LookupMaxRetries

	guard := service.NewGuard(whitelist, profiles, s.provider, s.sessions, retry, s.logger)
	s.provider.OnIdentityEstablished(guard.OnIdentityEstablished)
	s.stopAudit = s.sessions.Subscribe(s.auditSession)

	registration := service.NewRegistrationService(whitelist, pending, profiles, repairs, s.provider, retry, s.logger)
	admin := service.NewAdminService(whitelist, pending, repairs, s.logger)
	catalog := service.NewCatalogService(objects, blobs, s.logger)
	producerService := service.NewProducerService(producers, catalog, s.logger)

	// === Handlers ===
	var github handler.GitHubExchanger
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.Auth.GitHubCallbackURL)
	}
	secure := strings.HasPrefix(cfg.PublicURL, "https://")

	authHandler := handler.NewAuthHandler(registration, s.provider, github, s.sessions, secure, s.logger)
	adminHandler := handler.NewAdminHandler(admin, s.logger)
	objectHandler := handler.NewObjectHandler(catalog, s.logger)
	producerHandler := handler.NewProducerHandler(producerService, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Uploaded media is public by URL; the URLs are only handed out to
	// signed-in users.
	mediaServer := http.FileServer(http.Dir(blobs.Dir()))
	s.router.Handle(mediaPrefix+"*", http.StripPrefix(mediaPrefix, mediaServer))

	// === Auth routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(s.provider))
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/verify", authHandler.HandleVerify)
		})

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === API routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.provider))

		r.Get("/me", authHandler.HandleMe)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/pending", adminHandler.HandleListPending)
			r.Post("/pending/{key}/approve", adminHandler.HandleApprove)
			r.Post("/pending/{key}/reject", adminHandler.HandleReject)
			r.Get("/repairs", adminHandler.HandleListRepairs)
		})

		r.Route("/objects", func(r chi.Router) {
			r.Get("/", objectHandler.HandleSearch)
			r.Post("/", objectHandler.HandleCreate)
			r.Get("/mine", objectHandler.HandleMine)
			r.Get("/export.csv", objectHandler.HandleExport)
			r.Get("/{id}", objectHandler.HandleGet)
			r.Put("/{id}", objectHandler.HandleUpdate)
			r.Delete("/{id}", objectHandler.HandleDelete)
			r.Post("/{id}/media", objectHandler.HandleMedia)
		})

		r.Route("/producers", func(r chi.Router) {
			r.Get("/", producerHandler.HandleList)
			r.Post("/", producerHandler.HandleCreate)
			r.Get("/{id}", producerHandler.HandleGet)
			r.Put("/{id}", producerHandler.HandleUpdate)
			r.Delete("/{id}", producerHandler.HandleDelete)
		})
	})

	return nil
}

func (s *Server) newMailer() (auth.Mailer, error) {
	if s.config.Mail.ResendAPIKey == "" {
		s.logger.Warn("RESEND_API_KEY not set, verification links will only be logged")
		return auth.NewLogMailer(s.logger), nil
	}
	mailer, err := auth.NewResendMailer(s.config.Mail.ResendAPIKey, s.config.Mail.From)
	if err != nil {
		return nil, err
	}
	return mailer, nil
}

// auditSession logs every session transition.
func (s *Server) auditSession(ev session.Event) {
	attrs := []slog.Attr{
		slog.String("event", string(ev.Kind)),
		slog.String("account_id", ev.Identity.AccountID),
		slog.String("provider", ev.Identity.Provider),
	}
	if ev.Session != nil {
		attrs = append(attrs, slog.String("user_type", string(ev.Session.UserType)))
	}
	level := slog.LevelInfo
	if ev.Kind == session.EventRejected {
		level = slog.LevelWarn
		if ev.Reason != nil {
			attrs = append(attrs, slog.String("reason", ev.Reason.Error()))
		}
	}
	s.logger.LogAttrs(context.Background(), level, "session state changed", attrs...)
}

// Close releases storage without serving. Start calls it on return.
func (s *Server) Close() error {
	if s.stopAudit != nil {
		s.stopAudit()
	}
	return s.backend.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes storage.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // media uploads
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.PublicURL),
			slog.String("store_backend", s.config.StoreBackend),
			slog.Bool("github_login", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
