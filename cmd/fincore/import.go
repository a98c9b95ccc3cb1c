package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/models"
	"github.com/hypervisual/fincore/pkg/utils"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank transactions and open invoices into the ledger",
		Long: `Import JSON exports into the ledger database. Rows already present
are left untouched, so re-running an import is safe.

Examples:
  fincore import --transactions feed.json
  fincore import --invoices open.json
  fincore import --transactions feed.json --invoices open.json`,
		RunE: runImport,
	}

	cmd.Flags().String("transactions", "", "JSON file with bank transactions")
	cmd.Flags().String("invoices", "", "JSON file with open invoices")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	txPath, _ := cmd.Flags().GetString("transactions")
	invPath, _ := cmd.Flags().GetString("invoices")
	if txPath == "" && invPath == "" {
		return fmt.Errorf("nothing to import: pass --transactions and/or --invoices")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := ledger.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if txPath != "" {
		var txs []models.BankTransaction
		if err := readJSONFile(txPath, &txs); err != nil {
			return err
		}
		for _, t := range txs {
			if err := utils.ValidateCurrency(t.Currency); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}
		}
		n, err := store.ImportTransactions(ctx, txs)
		if err != nil {
			return err
		}
		logger.Info("Transactions imported",
			zap.String("file", txPath),
			zap.Int("new", n),
			zap.Int("total", len(txs)))
	}

	if invPath != "" {
		var invoices []models.OpenInvoice
		if err := readJSONFile(invPath, &invoices); err != nil {
			return err
		}
		for _, inv := range invoices {
			if err := utils.ValidateAmount(inv.Amount); err != nil {
				return fmt.Errorf("invoice %s: %w", inv.ID, err)
			}
			if err := utils.ValidateCurrency(inv.Currency); err != nil {
				return fmt.Errorf("invoice %s: %w", inv.ID, err)
			}
		}
		n, err := store.ImportInvoices(ctx, invoices)
		if err != nil {
			return err
		}
		logger.Info("Invoices imported",
			zap.String("file", invPath),
			zap.Int("new", n),
			zap.Int("total", len(invoices)))
	}

	return nil
}

func readJSONFile(path string, v interface{}) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
