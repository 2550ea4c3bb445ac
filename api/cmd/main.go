package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/bootstrap"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
)

// drainTimeout bounds how long in-flight requests get after a stop signal.
const drainTimeout = 15 * time.Second

// listener is the part of *http.Server that serve drives.
type listener interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
}

type app struct {
	srv     listener
	addr    string
	cleanup func()
}

type appFactory func() (*app, error)

func main() {
	config.LoadDotEnv()
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newApp, zlog.Logger)
	stop()
	os.Exit(code)
}

func newApp() (*app, error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, err
	}
	return &app{srv: srv, addr: srv.Addr, cleanup: cleanup}, nil
}

// run builds the app, serves until ctx ends and returns the process exit code.
func run(ctx context.Context, factory appFactory, lg zerolog.Logger) int {
	a, err := factory()
	if err != nil {
		lg.Error().Err(err).Msg("startup failed")
		return 1
	}
	if a.cleanup != nil {
		defer a.cleanup()
	}

	if err := serve(ctx, a, lg); err != nil {
		lg.Error().Err(err).Msg("http server stopped with error")
		return 1
	}
	return 0
}

// serve blocks until ctx is done or the listener fails on its own.
func serve(ctx context.Context, a *app, lg zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", a.addr).Msg("http server listening")
		errCh <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", a.addr, err)
	case <-ctx.Done():
		lg.Info().Msg("stop requested, draining")
	}

	dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := a.srv.Shutdown(dctx); err != nil {
		lg.Warn().Err(err).Msg("drain incomplete, closing connections")
		_ = a.srv.Close()
	}
	lg.Info().Msg("http server stopped")
	return nil
}
