package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/report"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match bank transactions against open invoices",
		Long: `Run the matcher over the ledger: auto-commit high-confidence pairs,
leave the rest as review candidates.

Examples:
  fincore reconcile                 # match and apply commits
  fincore reconcile --dry-run       # preview without writing links
  fincore reconcile --report        # also write the review workbook`,
		RunE: runReconcile,
	}

	cmd.Flags().Bool("dry-run", false, "score and allocate without writing links")
	cmd.Flags().Bool("report", false, "write the review workbook")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	withReport, _ := cmd.Flags().GetBool("report")

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

	txs, err := store.Transactions(ctx)
	if err != nil {
		return err
	}
	invoices, err := store.OpenInvoices(ctx)
	if err != nil {
		return err
	}

	m := matcher.New(matcher.Config{
		CommitThreshold: cfg.Matcher.CommitThreshold,
		ReviewThreshold: cfg.Matcher.ReviewThreshold,
		WindowDays:      cfg.Matcher.WindowDays,
		AmountTolerance: cfg.Matcher.AmountTolerance,
	}, logger)

	result := m.Run(txs, invoices)

	if !dryRun {
		applied, err := store.ApplyCommits(ctx, result.Commits)
		if err != nil {
			return err
		}
		logger.Info("Commits applied", zap.Int("applied", applied))
	}

	if withReport {
		queue, err := store.PendingExtractions(ctx)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.Report.OutputDir, 0o755); err != nil {
			return err
		}
		out := filepath.Join(cfg.Report.OutputDir,
			time.Now().Format("reconciliation_2006-01-02_150405.xlsx"))
		if err := report.NewWriter(logger).WriteRun(result, queue, out); err != nil {
			return err
		}
	}

	return printJSON(result)
}
