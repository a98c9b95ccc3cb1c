package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hypervisual/fincore/internal/suggester"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest a chart-of-accounts booking for a merchant",
		Long: `Map a free-text merchant description to a Käfer PME account code.

Examples:
  fincore suggest "Swisscom facture mensuelle"
  fincore suggest MIGROL SERVICE LAUSANNE`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSuggest,
	}
}

func runSuggest(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return printJSON(suggester.New(logger).Suggest(strings.Join(args, " ")))
}
