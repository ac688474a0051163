// Package devserver is a stub waste-collection backend for local development.
// It serves the dashboard page with its anti-forgery token, the JSON API the
// client calls, a datastar update stream and the websocket activity feed.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/haulboard/internal/live"
	"github.com/leapstack-labs/haulboard/internal/notifier"
)

// Server is the dev backend.
type Server struct {
	data         *Data
	sessionStore *sessions.CookieStore
	activity     *Activity
	hub          *live.Hub
	notifier     *notifier.Notifier
	port         int
	fixtures     string
	version      string
	logger       *slog.Logger
}

// Config holds configuration for the dev server.
type Config struct {
	Port          int
	SessionSecret string
	// FixturesPath is an optional YAML fixtures file, reloaded on change.
	FixturesPath string
	Version      string
	Logger       *slog.Logger
}

// NewServer creates a new dev server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	fixtures := DefaultFixtures()
	if cfg.FixturesPath != "" {
		f, err := LoadFixtures(cfg.FixturesPath)
		if err != nil {
			return nil, err
		}
		fixtures = f
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400) // 1 day
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	notify := notifier.New()
	hub := live.NewHub(cfg.Logger)

	return &Server{
		data:         NewData(fixtures),
		sessionStore: sessionStore,
		activity:     NewActivity(notify, hub),
		hub:          hub,
		notifier:     notify,
		port:         cfg.Port,
		fixtures:     cfg.FixturesPath,
		version:      cfg.Version,
		logger:       cfg.Logger,
	}, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)
	h := NewHandlers(s.data, s.sessionStore, s.activity, s.notifier, s.version, s.logger)
	SetupRoutes(r, h, s.hub)
	return r
}

// Activity returns the server's activity log.
func (s *Server) Activity() *Activity { return s.activity }

// Data returns the server's mutable state.
func (s *Server) Data() *Data { return s.data }

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dev server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.fixtures != "" {
		eg.Go(func() error {
			return s.watchFixtures(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dev server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchFixtures reloads the fixtures file when it changes. The directory is
// watched so editors that replace the file are seen.
func (s *Server) watchFixtures(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.fixtures)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch fixtures", "error", err)
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, s.reloadFixtures)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reloadFixtures() {
	f, err := LoadFixtures(s.fixtures)
	if err != nil {
		s.logger.Error("fixtures reload failed", "error", err)
		s.activity.Record("error", "Fixtures reload failed")
		return
	}
	s.data.Reset(f)
	s.logger.Debug("fixtures reloaded", "file", s.fixtures)
	s.notifier.Broadcast(notifier.TopicBoard)
	s.activity.Record("info", "Fixtures reloaded")
}
