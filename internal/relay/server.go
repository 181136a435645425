// Package relay serves the Fivetran HTTP relay: a small JSON API that
// forwards connector lookups and forced syncs to Fivetran.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
)

const shutdownTimeout = 5 * time.Second

// ConnectorAPI is the subset of *fivetran.Client the relay forwards to.
type ConnectorAPI interface {
	GetConnector(ctx context.Context, id string) (json.RawMessage, error)
	ForceSync(ctx context.Context, id string) (json.RawMessage, error)
}

// Server is the relay HTTP server.
type Server struct {
	api    ConnectorAPI
	mode   string
	addr   string
	logger *slog.Logger
	router chi.Router
}

// New builds a relay for cfg.Mode. Full mode serves /, /mcp, /sse and
// /get_info/{id}; info mode serves only / and /get_info/{id}.
func New(api ConnectorAPI, cfg config.Fivetran, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{
		api:    api,
		mode:   cfg.Mode,
		addr:   cfg.Addr,
		logger: lg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(s.recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/get_info/{id}", s.handleGetInfo)
	if s.mode != config.RelayInfo {
		r.Get("/mcp", s.handleMCP)
		r.Get("/sse", s.handleSSE)
	}
	return r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.InfoContext(ctx, "relay listening", "addr", s.addr, "mode", s.mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.InfoContext(ctx, "relay shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// recoverer turns a handler panic into the relay's generic 500 body.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.ErrorContext(r.Context(), "relay: handler panic",
				"panic", rec,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
			)
			s.writeInternal(w, r, fmt.Sprint(rec))
		}()
		next.ServeHTTP(w, r)
	})
}
