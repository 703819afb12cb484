package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"fillstorage/pkg/log"
	"fillstorage/pkg/runner"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10 * time.Second
	syncTimeout     = 30 * time.Second
)

// FillServer exposes the storage filler over HTTP.
type FillServer struct {
	echo    *echo.Echo
	version string
	runner  *runner.Runner
}

func NewFillServer(version string, jobs *runner.Runner) *FillServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &FillServer{
		echo:    e,
		version: version,
		runner:  jobs,
	}
}

// Start serves on addr until ctx is done or the listener fails, then shuts
// down. A fill that is still running is cancelled either way.
func (srv *FillServer) Start(ctx context.Context, addr string) error {
	srv.setupRoutes()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("dir", srv.runner.FreeSpace().Dir).
			Str("version", srv.version).
			Msg("Starting fill server")
		serveErr <- srv.echo.Start(addr)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Server stopped unexpectedly")
			srv.runner.Shutdown()
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return srv.Shutdown()
	}
}

// Shutdown stops the active job before closing the listener, so dummy files
// are closed by the time buffers are flushed.
func (srv *FillServer) Shutdown() error {
	status := srv.runner.Shutdown()
	log.Info().
		Str("operation", string(status.Operation)).
		Str("state", string(status.State)).
		Msg("Jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		shutdownErr = fmt.Errorf("shutdown: %w", err)
	}

	flushFilesystem()

	log.Info().Msg("Fill server stopped")
	return shutdownErr
}

// flushFilesystem runs sync(1); failures are only logged.
func flushFilesystem() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "sync").Run(); err != nil {
		log.Warn().Err(err).Msg("Sync command failed")
		return
	}
	log.Debug().Msg("Filesystem buffers flushed")
}

func (srv *FillServer) setupRoutes() {
	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	storage := srv.echo.Group("/storage")
	storage.GET("/free", srv.getFreeSpace)
	storage.GET("/status", srv.getStatus)
	storage.GET("/files", srv.listFiles)
	storage.POST("/fill", srv.startFill)
	storage.POST("/reset", srv.resetStorage)

	srv.echo.GET("/swagger.yml", srv.serveSwaggerSpec)
}
