package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MoexPull/internal/service/securities"
	"MoexPull/pkg/config"
	xhttp "MoexPull/pkg/http"
	applogger "MoexPull/pkg/logger"
)

// App owns the process lifecycle: start the HTTP server, warm what can be
// warmed, block until a termination signal, shut down within the configured
// grace period.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger
	srv    *xhttp.Server
	dir    *securities.Directory
}

func New(cfg *config.Config, logger *applogger.Logger, handler xhttp.Handler, dir *securities.Directory) *App {
	srv := xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(logger),
	)
	return &App{cfg: cfg, logger: logger, srv: srv, dir: dir}
}

// Run blocks until SIGINT/SIGTERM or a server failure.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the securities directory; a missing file is not fatal, the
	// first search will retry.
	if a.dir != nil {
		if err := a.dir.Load(ctx); err != nil {
			a.logger.Warn("securities directory not preloaded", applogger.Error(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.Start()
	}()
	a.logger.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.srv.Stop(shutdownCtx)
}
