package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/api"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/config"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/database"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/events"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/forecast"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/metrics"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/pipeline"
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/scheduler"
)

// Command neso-solar-consumer fetches the NESO embedded solar forecast and
// stores it as a national forecast.
//
// Usage:
//
//	neso-solar-consumer [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-once
//	      run a single pass and exit (default true)
//	-print-config
//	      print the effective configuration and exit
func main() {
	flags := parseFlags()

	appConfig, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if flags.PrintConfig {
		out, err := appConfig.YAML()
		if err != nil {
			log.Fatalf("Failed to render configuration: %v", err)
		}
		fmt.Print(out)
		return
	}

	logger := newLogger(appConfig.Logging)

	if err := run(appConfig, flags.Once, logger); err != nil {
		logger.WithError(err).Error("Consumer failed")
		os.Exit(1)
	}
}

type Flags struct {
	ConfigPath  string
	Once        bool
	PrintConfig bool
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "config.yaml", "Path to config file")
	flag.BoolVar(&f.Once, "once", true, "Run a single pass and exit")
	flag.BoolVar(&f.PrintConfig, "print-config", false, "Print the effective configuration and exit")

	flag.Parse()

	return f
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func run(appConfig *config.Config, once bool, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := database.NewPostgresRepo(appConfig.Database.ConnectionString(), database.PoolConfig{
		MaxConnections:    appConfig.Database.MaxConnections,
		ConnectionTimeout: appConfig.Database.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	catalog, err := database.NewCachedCatalog(repo, appConfig.Database.CatalogCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create catalog cache: %w", err)
	}

	publisher, err := events.NewPublisher(events.Config{
		Backend:      appConfig.Events.Backend,
		RedisURL:     appConfig.Events.RedisURL,
		RedisChannel: appConfig.Events.RedisChannel,
		KafkaBrokers: appConfig.Events.KafkaBrokers,
		KafkaTopic:   appConfig.Events.KafkaTopic,
	})
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := api.NewClient(api.ClientConfig{
		BaseURL:            appConfig.NESO.BaseURL,
		Timeout:            appConfig.NESO.Timeout,
		BreakerMaxFailures: appConfig.NESO.Breaker.MaxFailures,
		BreakerOpenTimeout: appConfig.NESO.Breaker.OpenTimeout,
	}, logger)

	mapper := forecast.NewMapper(catalog, forecast.Options{
		LocationMode: forecast.LocationMode(appConfig.Forecast.LocationMode),
		DefaultGSPID: appConfig.Forecast.DefaultGSPID,
	}, logger)

	p := pipeline.New(pipeline.Config{
		ResourceID:          appConfig.NESO.ResourceID,
		Limit:               appConfig.NESO.Limit,
		SQLQuery:            appConfig.NESO.SQLQuery,
		ModelName:           appConfig.Model.Name,
		ModelVersion:        appConfig.Model.Version,
		SaveToLastSevenDays: appConfig.Forecast.SaveToLastSevenDays,
	}, client, mapper, repo, publisher, m, logger)

	if once {
		return runOnce(ctx, p, reg, appConfig, logger)
	}
	return runScheduled(ctx, p, reg, appConfig, logger)
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, reg *prometheus.Registry, appConfig *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, appConfig.Scheduler.RunTimeout)
	defer cancel()

	res, runErr := p.Run(ctx)

	if path := appConfig.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(reg, path); err != nil {
			logger.WithError(err).WithField("path", path).Warn("Failed to write metrics textfile")
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"saved":  res.Saved,
		"values": res.Values,
	}).Info("Run finished")
	return nil
}

func runScheduled(ctx context.Context, p *pipeline.Pipeline, reg *prometheus.Registry, appConfig *config.Config, logger *logrus.Logger) error {
	sched := scheduler.NewScheduler(ctx, p, appConfig.Scheduler.Cron, appConfig.Scheduler.RunTimeout, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("scheduler error: %w", err)
	}
	defer sched.Stop()

	srv := newMetricsServer(appConfig.Metrics.ListenAddr, reg)
	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, stopping")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
