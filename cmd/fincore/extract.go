package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/docsource"
	"github.com/hypervisual/fincore/internal/extractor"
	"github.com/hypervisual/fincore/internal/ledger"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract invoice fields from a document",
		Long: `Classify a document and extract its structured invoice fields.

With --queue, an extraction below the configured confidence floor is
parked in the review queue instead of only being printed.

Examples:
  fincore extract invoice.pdf
  fincore extract scan.txt --queue`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().Bool("queue", false, "park low-confidence extractions for review")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	doc, err := docsource.NewLoader(logger).Load(args[0])
	if err != nil {
		return err
	}

	identity := identityFromConfig(cfg)
	classified := classifier.New(classifier.Config{
		Identity:   identity,
		TieEpsilon: cfg.Classifier.TieEpsilon,
		MinScore:   cfg.Classifier.MinScore,
	}, logger).Classify(doc)

	invoice := extractor.New(extractor.Config{
		Identity:      identity,
		SnapTolerance: cfg.Extractor.SnapTolerance,
	}, logger).Extract(classified)

	queue, _ := cmd.Flags().GetBool("queue")
	if queue && invoice.ExtractionConfidence < cfg.Extractor.MinConfidence {
		store, err := ledger.Open(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.QueueExtraction(cmd.Context(), invoice)
		if err != nil {
			return fmt.Errorf("failed to queue extraction: %w", err)
		}
		logger.Info("Extraction queued for review",
			zap.Int64("id", id),
			zap.Float64("confidence", invoice.ExtractionConfidence))
	}

	return printJSON(invoice)
}
