package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rescp17/lanBench/pkg/server"
	"github.com/rescp17/lanBench/pkg/system"
)

// StatsSource is what the stats endpoint reports on. *server.Server
// satisfies it.
type StatsSource interface {
	Stats() server.Stats
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Server  server.Stats      `json:"server"`
	Runtime system.SystemInfo `json:"runtime"`
}

// API serves a read-only view of a running server.
type API struct {
	source  StatsSource
	monitor *system.SystemMonitor
	router  *gin.Engine
}

// NewAPI creates the router and registers its routes.
func NewAPI(source StatsSource, monitor *system.SystemMonitor) *API {
	gin.SetMode(gin.ReleaseMode)
	a := &API{
		source:  source,
		monitor: monitor,
		router:  gin.New(),
	}
	a.router.Use(gin.Recovery())
	a.registerRoutes()
	return a
}

// ServeHTTP allows the API struct to satisfy the http.Handler interface.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) registerRoutes() {
	a.router.GET("/stats", a.statsHandler)
	a.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (a *API) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Server:  a.source.Stats(),
		Runtime: a.monitor.GetSystemInfo(),
	})
}

// ListenAndServe serves the API on addr until ctx is done, then shuts the
// HTTP server down gracefully.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for stats API: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener, which it takes over.
func (a *API) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Stats API listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("stats API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down stats API: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("stats API: %w", err)
	}
	return nil
}
