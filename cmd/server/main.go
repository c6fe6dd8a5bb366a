package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaminalder/tictactoe-replay/internal/app"
	"github.com/jaminalder/tictactoe-replay/internal/config"
	"github.com/jaminalder/tictactoe-replay/internal/logger"
	"github.com/jaminalder/tictactoe-replay/internal/web"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	listenAddr string
	logLevel   string
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", "", "path to a yaml config file")
	pflag.StringVarP(&listenAddr, "listen-addr", "l", "", "address to listen on (overrides config)")
	pflag.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

func main() {
	pflag.Parse()

	conf, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if listenAddr != "" {
		conf.HTTPAddr = listenAddr
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}

	log := logger.New(os.Stdout, conf.LogLevel, conf.LogFormat)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(start(ctx, log, conf))
}

func start(ctx context.Context, log *slog.Logger, conf *config.Config) int {
	errg, ctx := errgroup.WithContext(ctx)

	svc := app.NewService(log)
	srv := &http.Server{
		Addr:    conf.HTTPAddr,
		Handler: web.NewServer(svc, log, web.WithHeartbeat(conf.SSEHeartbeat)),
	}

	errg.Go(func() error {
		log.Info("listening via HTTP", "addr", conf.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	errg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := errg.Wait(); err != nil {
		log.Error("server error", "err", err)
		return 1
	}
	return 0
}
