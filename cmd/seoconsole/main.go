package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/seoaudit/seoconsole/internal/api"
	"github.com/seoaudit/seoconsole/internal/apiclient"
	"github.com/seoaudit/seoconsole/internal/app"
	"github.com/seoaudit/seoconsole/internal/config"
	"github.com/seoaudit/seoconsole/internal/format"
	"github.com/seoaudit/seoconsole/internal/notifications"
	"github.com/seoaudit/seoconsole/internal/scheduler"
	"github.com/seoaudit/seoconsole/internal/state"
	"github.com/seoaudit/seoconsole/internal/views"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("SEO Console v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := build(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// newLogger writes text to a terminal and JSON everywhere else.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func build(cfg *config.Config, logger *slog.Logger) (*api.Server, error) {
	f := format.NewFormatter(cfg.UI.Location(), nil)
	renderer, err := views.NewRenderer(f)
	if err != nil {
		return nil, err
	}

	client := apiclient.New(apiclient.Config{
		BaseURL:  cfg.Backend.BaseURL,
		BasePath: cfg.Backend.APIBasePath,
		Timeout:  cfg.Backend.Timeout,
		Headers:  cfg.Backend.Headers,
	}, apiclient.WithLogger(logger))

	toasts := notifications.NewService(notifications.Config{
		TTL:       cfg.Notifications.ToastTTL,
		MaxToasts: cfg.Notifications.MaxToasts,
		Slack: notifications.SlackConfig{
			Enabled:    cfg.Notifications.Slack.Enabled,
			WebhookURL: cfg.Notifications.Slack.WebhookURL,
			Channel:    cfg.Notifications.Slack.Channel,
			Username:   "SEO Console",
		},
	}, logger)

	a := app.New(views.Deps{
		API:      client,
		Store:    state.New(),
		Toasts:   toasts,
		Format:   f,
		Renderer: renderer,
		Logger:   logger,
		PerPage:  cfg.UI.PerPage,
	}, app.Config{
		DashboardInterval: cfg.Polling.DashboardInterval,
		SchedulerInterval: cfg.Polling.SchedulerInterval,
	}, scheduler.NewScheduler(logger))

	ready := func(ctx context.Context) error {
		_, err := client.SchedulerStatus(ctx)
		return err
	}

	return api.NewServer(cfg, a, api.WithLogger(logger), api.WithReadiness(ready)), nil
}
