package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aigoflow/news-classifier/internal/app"
	"github.com/aigoflow/news-classifier/internal/handlers"
)

type Server struct {
	httpAddr string
	app      *app.App
	srv      *http.Server
}

func NewServer(httpAddr string, a *app.App) *Server {
	s := &Server{
		httpAddr: httpAddr,
		app:      a,
	}
	s.srv = &http.Server{
		Addr:              httpAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	predictHandler := handlers.NewPredictHandler(s.app.Predict, s.app.Labels(), s.app.Stats, s.app.Requests())
	predictHandler.RegisterRoutes(mux)
	return mux
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	slog.Info("HTTP server starting",
		"addr", ln.Addr().String(),
		"endpoints", []string{"/", "/predict", "/healthz", "/logs"})

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
