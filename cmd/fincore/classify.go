package main

import (
	"github.com/spf13/cobra"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/docsource"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>",
		Short: "Classify a scanned document",
		Long: `Classify a document (.pdf with a text layer, or .txt OCR output) as a
client invoice, supplier invoice, expense note or unknown.

Examples:
  fincore classify invoice.pdf
  fincore classify scan.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
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

	c := classifier.New(classifier.Config{
		Identity:   identityFromConfig(cfg),
		TieEpsilon: cfg.Classifier.TieEpsilon,
		MinScore:   cfg.Classifier.MinScore,
	}, logger)

	return printJSON(c.Classify(doc))
}
