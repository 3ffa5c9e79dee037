package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwikikusuma/pos-payments/pkg/config"
	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "pos",
		Short:         "Point-of-sale payment core: checkout, cart, wallet and payment relay",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (env vars are the defaults)")

	load := func() (config.Config, error) {
		return config.LoadFile(cfgPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newRelayCmd(load),
		newCartCmd(load),
		newConfigCmd(load),
	)
	return root
}

type loader func() (config.Config, error)

func newLogger(cfg config.Config, service string) *slog.Logger {
	return logger.New(logger.Options{
		Service:   service,
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
	})
}

func newHTTPServer(port int, h http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// runHTTP serves until ctx is done, then drains in-flight requests.
func runHTTP(ctx context.Context, log *slog.Logger, name string, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error(name+" error", slog.Any("err", err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(name+" shutdown error", slog.Any("err", err))
		return err
	}
	return nil
}
