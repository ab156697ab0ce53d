// Package main provides the entry point for the prediction pipeline.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/stock-prophet/internal/artifact"
	"github.com/yourusername/stock-prophet/internal/config"
	"github.com/yourusername/stock-prophet/internal/datasource"
	"github.com/yourusername/stock-prophet/internal/health"
	"github.com/yourusername/stock-prophet/internal/logger"
	"github.com/yourusername/stock-prophet/internal/metrics"
	"github.com/yourusername/stock-prophet/internal/ml"
	"github.com/yourusername/stock-prophet/internal/pipeline"
	"github.com/yourusername/stock-prophet/internal/scheduler"
)

var version = "dev"

func main() {
	var (
		configPath string
		force      bool
		daemon     bool
	)

	rootCmd := &cobra.Command{
		Use:   "predictor",
		Short: "Daily stock direction prediction pipeline",
		Long: "Fetches daily price and macroeconomic history, trains a " +
			"direction classifier per ticker and writes a JSON artifact " +
			"for the dashboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, force, daemon)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "run even if the artifact is still fresh")
	rootCmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "stay resident and run on the configured cron schedule")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("predictor %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, force, daemon bool) error {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     version,
	}).Info("Stock Prophet starting")

	metrics.InitRegistry()
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, appLog)
	}

	p := buildPipeline(cfg, appLog)

	if daemon {
		return runDaemon(cfg, p, appLog)
	}
	return runOnce(cfg, p, appLog, force)
}

// buildPipeline wires the external sources and stages from configuration.
func buildPipeline(cfg *config.Config, appLog *logrus.Logger) *pipeline.Pipeline {
	httpLogger := log.New(os.Stdout, "http: ", log.LstdFlags)

	priceClient := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfig{
		Timeout:      time.Duration(cfg.Sources.Prices.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Sources.Prices.RetryAttempts,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    cfg.Sources.Prices.RateLimit,
	}, httpLogger)
	econClient := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfig{
		Timeout:      time.Duration(cfg.Sources.Economic.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Sources.Economic.RetryAttempts,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    cfg.Sources.Economic.RateLimit,
	}, httpLogger)

	var prices datasource.PriceSource = datasource.NewYahooSource(cfg.Sources.Prices.BaseURL, priceClient)
	if ttl := cfg.Sources.Prices.CacheTTLSeconds; ttl > 0 {
		// The index and sector ETFs are fetched once per ticker otherwise.
		prices = datasource.NewCachedPriceSource(prices, time.Duration(ttl)*time.Second)
	}
	economic := datasource.NewFREDSource(cfg.Sources.Economic.BaseURL, cfg.Sources.Economic.APIKey, econClient)

	trainer := ml.NewTrainer(ml.TrainerConfig{
		Booster: ml.BoosterConfig{
			Trees:          cfg.Training.Trees,
			LearningRate:   cfg.Training.LearningRate,
			MaxDepth:       cfg.Training.MaxDepth,
			MinSamplesLeaf: cfg.Training.MinSamplesLeaf,
			SubsampleRatio: cfg.Training.SubsampleRatio,
			Seed:           cfg.Training.Seed,
		},
		MinRows:         cfg.Training.MinRows,
		HoldoutFraction: cfg.Training.HoldoutFraction,
	}, appLog.WithField("component", "trainer"))

	writer := artifact.NewWriter(cfg.Output.Path)

	return pipeline.New(cfg, prices, economic, trainer, writer, appLog.WithField("component", "pipeline"))
}

func runOnce(cfg *config.Config, p *pipeline.Pipeline, appLog *logrus.Logger, force bool) error {
	now := time.Now().UTC()
	if !force && artifact.DecideFromFile(cfg.Output.Path, now, cfg.MaxAge()) == artifact.Reuse {
		metrics.RecordRun("skipped", 0)
		appLog.WithField("path", cfg.Output.Path).Info("Artifact still fresh, skipping run")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return p.Run(ctx)
}

func runDaemon(cfg *config.Config, p *pipeline.Pipeline, appLog *logrus.Logger) error {
	sched := scheduler.New(p, cfg.Output.Path, cfg.MaxAge(), appLog.WithField("component", "scheduler"))

	cronExpr := cfg.Schedule.Cron
	if cronExpr == "" {
		cronExpr = "0 22 * * 1-5"
	}
	if err := sched.Schedule(cronExpr); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthServer := health.NewServer(health.Config{
		ServiceName:  cfg.App.Name,
		Version:      version,
		Logger:       appLog,
		ArtifactPath: cfg.Output.Path,
		MaxAge:       cfg.MaxAge(),
	})
	if err := healthServer.Start(ctx); err != nil {
		return err
	}
	healthServer.SetReady(true)

	appLog.WithField("next_run", sched.NextRun()).Info("Daemon mode, waiting for schedule")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	appLog.WithField("signal", sig).Info("Shutdown signal received")
	sched.Stop()
	return nil
}

func startMetricsServer(cfg *config.Config, appLog *logrus.Logger) {
	mux := http.NewServeMux()
	path := cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		appLog.WithField("addr", server.Addr).Info("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server stopped")
		}
	}()
}
