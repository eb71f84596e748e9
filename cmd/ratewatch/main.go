package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ratewatch/ratewatch/internal/alerts"
	"github.com/ratewatch/ratewatch/internal/api"
	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/export"
	"github.com/ratewatch/ratewatch/internal/feed"
	"github.com/ratewatch/ratewatch/internal/metrics"
	"github.com/ratewatch/ratewatch/internal/panel"
	"github.com/ratewatch/ratewatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("ratewatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Panel.HTTPPort,
		"feed_url", cfg.Panel.Feed.URL,
		"outlier_sigma", cfg.Panel.Stats.OutlierSigma,
		"retention_cap", cfg.Panel.Stats.RetentionCap,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Panel owns the per-channel windows and the memoized summary cache.
	p := panel.New(panel.Options{
		Cap:     cfg.Panel.Stats.RetentionCap,
		Sigma:   cfg.Panel.Stats.OutlierSigma,
		Metrics: m,
	})

	// Host feed adapter — delivers (channel, timestamp) pairs into the panel.
	fd := feed.New(cfg.Panel.Feed.URL, cfg.Panel.Feed.Channels, p, m)
	go fd.Run(ctx)

	// Alerts engine — evaluates rules on every broadcast tick. Constructed
	// even with no rules configured, so a hot reload can add some later.
	alertEngine := alerts.New(cfg.Panel.Alerts)
	go alertEngine.Run(ctx, cfg.Panel.Broadcast.Interval, p)

	// WebSocket hub — broadcasts summaries to UI clients.
	hub := ws.New(p, cfg.Panel.Broadcast.Interval, m)
	go hub.Run(ctx)

	// Optional periodic CSV snapshot.
	if cfg.Panel.Export.Path != "" && cfg.Panel.Export.Interval > 0 {
		sink := export.NewFileSink(cfg.Panel.Export.Path)
		go sink.Run(ctx, cfg.Panel.Export.Interval, p)
		slog.Info("periodic export enabled",
			"path", cfg.Panel.Export.Path, "interval", cfg.Panel.Export.Interval)
	}

	// Config hot reload: outlier sigma, feed channels and alert rules.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			p.SetSigma(next.Panel.Stats.OutlierSigma)
			fd.SetChannels(next.Panel.Feed.Channels)
			alertEngine.SetRules(next.Panel.Alerts.Rules)
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	// HTTP server: JSON API + WebSocket hub + Prometheus metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.WithAPIKey(
		cfg.Panel.Auth.Mode,
		cfg.Panel.Auth.EffectiveHeader(),
		cfg.Panel.Auth.Key(),
		api.New(p, fd, alertEngine),
	))
	httpMux.Handle("/ws/summaries", hub)
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Panel.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Panel.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("ratewatch shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
