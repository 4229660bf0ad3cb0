// Package server serves stored conversations as JSON.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/popchat/internal/configuration"
	"github.com/malonaz/popchat/internal/debug"
	"github.com/malonaz/popchat/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates a new serve command
func NewServeCmd(config *configuration.Config, s *store.Store) *cobra.Command {
	var opts struct {
		Port int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored conversations over HTTP",
		Long:  "Serve a JSON API for viewing and deleting stored conversations",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := New(s)
			return server.Start(cmd.Context(), opts.Port)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", config.Server.Port, "Port to serve on")
	return cmd
}

// Server handles the conversation API.
type Server struct {
	store *store.Store
}

// New instantiates and returns a new server.
func New(s *store.Store) *Server {
	return &Server{store: s}
}

// Router returns the handler of the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.handleListConversations)
		r.Route("/{conversationID}", func(r chi.Router) {
			r.Get("/", s.handleGetConversation)
			r.Get("/export", s.handleExportConversation)
			r.Delete("/", s.handleDeleteConversation)
		})
	})
	return r
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		fmt.Printf("Server starting on http://localhost%s\n", httpServer.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}

// logRequests logs every request with the debug logger.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		debug.GetLogger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
