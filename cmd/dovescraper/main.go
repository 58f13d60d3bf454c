// Package main wires together the scraper service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/clock/system"
	"github.com/doveops/dovescraper/internal/config"
	"github.com/doveops/dovescraper/internal/delivery"
	"github.com/doveops/dovescraper/internal/dispatcher"
	"github.com/doveops/dovescraper/internal/intake"
	"github.com/doveops/dovescraper/internal/logging"
	"github.com/doveops/dovescraper/internal/metrics"
	"github.com/doveops/dovescraper/internal/queue"
	"github.com/doveops/dovescraper/internal/session"
	"github.com/doveops/dovescraper/internal/window"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "create data directories failed: %v\n", err)
		os.Exit(1)
	}

	sink, err := logging.NewFileSink(cfg.Paths.Logs.Path, cfg.Paths.Logs.File, cfg.Paths.Logs.Enabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file failed: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Debug, sink)
	defer logging.MustSync(logger)
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New(cfg.Location())
	q := queue.New(cfg.Paths.Incoming)

	factory := session.NewFactory(session.PortalConfig{
		LoginURL:   cfg.Login.URL,
		Username:   cfg.Login.Username,
		Password:   cfg.Login.Password,
		Headless:   cfg.Scraper.Headless,
		SettleWait: cfg.SettleWait(),
		NavTimeout: cfg.NavTimeout(),
		Debug:      cfg.Debug,
		DebugDir:   cfg.Paths.Debug,
	}, logger.Named("portal"))

	deliverer := delivery.New(
		cfg.Post.URL,
		cfg.Post.Headers,
		cfg.Paths.Posted,
		cfg.Paths.Processed,
		cfg.Debug,
		cfg.Paths.Debug,
		logger.Named("delivery"),
	)

	engine := session.New(
		q,
		factory,
		deliverer,
		clock,
		cfg.Paths.Failed,
		cfg.Debug,
		cfg.Paths.Debug,
		logger.Named("session"),
	)

	disp := dispatcher.New(q, engine, cfg.Scraper.Instances, cfg.Errors.Fatal, logger.Named("dispatcher"))

	windows := window.New(
		cfg.Schedule.Open,
		cfg.Schedule.Close,
		cfg.Schedule.Logs,
		cfg.Location(),
		clock,
		window.Hooks{
			SetActive: disp.SetActive,
			OnOpen:    func() { disp.Drain(ctx) },
			Rotate:    sink.Rotate,
		},
		logger.Named("window"),
	)
	if err := windows.Start(); err != nil {
		logger.Fatal("start window scheduler failed", zap.Error(err))
	}
	defer windows.Stop()

	watcher, err := queue.NewWatcher(cfg.Paths.Incoming, func(path string) {
		disp.HandleFile(ctx, path)
	}, logger.Named("watcher"))
	if err != nil {
		logger.Fatal("start queue watcher failed", zap.Error(err))
	}
	go watcher.Run(ctx)
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("close watcher failed", zap.Error(err))
		}
	}()

	// Pick up anything queued while the service was down.
	if disp.Active() {
		disp.Drain(ctx)
	}

	apiServer := intake.NewServer(q, disp, cfg, logger.Named("intake"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := sink.Close(); err != nil {
		logger.Error("close log sink error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
