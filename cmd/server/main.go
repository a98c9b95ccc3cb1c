package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/internal/extractor"
	httpserver "github.com/hypervisual/fincore/internal/interfaces/http"
	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/suggester"
	"github.com/hypervisual/fincore/pkg/utils"
)

func main() {
	// Local overrides before viper reads the environment.
	_ = gotenv.Load()

	configPath := os.Getenv("FINCORE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting accounting core server",
		zap.Int("port", cfg.Server.Port))

	store, err := ledger.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open ledger database", zap.Error(err))
	}
	defer store.Close()

	identity := classifier.Identity{
		Names:  cfg.Identity.CompanyNames,
		TaxIDs: cfg.Identity.TaxIDs,
	}

	pipeline := httpserver.Pipeline{
		Classifier: classifier.New(classifier.Config{
			Identity:   identity,
			TieEpsilon: cfg.Classifier.TieEpsilon,
			MinScore:   cfg.Classifier.MinScore,
		}, logger),
		Extractor: extractor.New(extractor.Config{
			Identity:      identity,
			SnapTolerance: cfg.Extractor.SnapTolerance,
		}, logger),
		Matcher: matcher.New(matcher.Config{
			CommitThreshold: cfg.Matcher.CommitThreshold,
			ReviewThreshold: cfg.Matcher.ReviewThreshold,
			WindowDays:      cfg.Matcher.WindowDays,
			AmountTolerance: cfg.Matcher.AmountTolerance,
		}, logger),
		Suggester:     suggester.New(logger),
		Store:         store,
		MinConfidence: cfg.Extractor.MinConfidence,
	}

	server := httpserver.NewServer(cfg.Server, pipeline, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
