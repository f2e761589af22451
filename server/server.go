// Package server assembles the HTTP service around the chat engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/tripweaver/tripweaver/internal/profile"
	apiv1 "github.com/tripweaver/tripweaver/server/router/api/v1"
	"github.com/tripweaver/tripweaver/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echo *echo.Echo
	http *http.Server
}

func NewServer(p *profile.Profile, st *store.Store, engine apiv1.Answerer, gen apiv1.Generator, vision apiv1.VisionDescriber) *Server {
	e := echo.New()

	e.GET("/healthz", func(c *echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiv1.NewAPIV1Service(st, engine, gen, vision, p).Register(e)

	return &Server{
		Profile: p,
		Store:   st,
		echo:    e,
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", p.Addr, p.Port),
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "err", err)
	}
	slog.Info("http server stopped")
	return nil
}
