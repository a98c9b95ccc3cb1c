// Package main contains the fincore CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/pkg/utils"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "fincore",
		Short: "Swiss SME accounting core",
		Long: `fincore processes scanned accounting documents: it classifies OCR text,
extracts invoice fields, reconciles bank transactions against open
invoices and suggests chart-of-accounts bookings.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "config file")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(vatCmd())
	rootCmd.AddCommand(referenceCmd())
}

func main() {
	_ = gotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// buildLogger builds the CLI logger. Command output goes to stdout as
// JSON; logs stay on stderr.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	out := cfg.Logger.OutputPath
	if out == "" || out == "stdout" {
		out = "stderr"
	}
	return utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: out,
		Format:     cfg.Logger.Format,
	})
}

func identityFromConfig(cfg *config.Config) classifier.Identity {
	return classifier.Identity{
		Names:  cfg.Identity.CompanyNames,
		TaxIDs: cfg.Identity.TaxIDs,
	}
}

// printJSON writes v to stdout, indented for the terminal.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
