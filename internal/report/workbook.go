// Package report renders a reconciliation run into an Excel workbook for
// the reviewing accountant: committed links, open candidates and the
// extraction review queue, one sheet each.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/money"
)

// Writer renders review workbooks
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a workbook writer
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteRun writes the run and the pending review queue to outputPath.
func (w *Writer) WriteRun(result matcher.Result, queue []ledger.QueuedExtraction, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.fillSummary(f, result, len(queue)); err != nil {
		return err
	}
	if err := w.fillCommits(f, result); err != nil {
		return err
	}
	if err := w.fillCandidates(f, result); err != nil {
		return err
	}
	if err := w.fillQueue(f, queue); err != nil {
		return err
	}

	// Drop the default sheet so the workbook opens on the summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("Review workbook written",
		zap.String("path", outputPath),
		zap.Int("commits", len(result.Commits)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("queued", len(queue)))
	return nil
}

func (w *Writer) fillSummary(f *excelize.File, result matcher.Result, queued int) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	w.setRow(f, sheet, 1, "Transactions processed", result.Processed)
	w.setRow(f, sheet, 2, "Auto-reconciled", len(result.Commits))
	w.setRow(f, sheet, 3, "Review candidates", len(result.Candidates))
	w.setRow(f, sheet, 4, "No match", result.NoMatch)
	w.setRow(f, sheet, 5, "Already reconciled", result.Skipped)
	w.setRow(f, sheet, 6, "Extractions pending review", queued)
	return nil
}

func (w *Writer) fillCommits(f *excelize.File, result matcher.Result) error {
	const sheet = "Commits"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	w.setRow(f, sheet, 1, "Transaction", "Invoice", "Score")
	for i, c := range result.Commits {
		w.setRow(f, sheet, i+2, c.TransactionID, c.InvoiceID, fmt.Sprintf("%.1f", c.Score))
	}
	return nil
}

func (w *Writer) fillCandidates(f *excelize.File, result matcher.Result) error {
	const sheet = "Candidates"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	w.setRow(f, sheet, 1, "Transaction", "Invoice", "Score", "Amount exact", "Date delta (days)", "Text similarity")
	for i, c := range result.Candidates {
		w.setRow(f, sheet, i+2,
			c.TransactionID,
			c.InvoiceID,
			fmt.Sprintf("%.1f", c.Score),
			c.Signals.AmountExact,
			c.Signals.DateDeltaDays,
			fmt.Sprintf("%.2f", c.Signals.TextSimilarity))
	}
	return nil
}

func (w *Writer) fillQueue(f *excelize.File, queue []ledger.QueuedExtraction) error {
	const sheet = "Review Queue"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	w.setRow(f, sheet, 1, "ID", "Type", "Issuer", "Gross", "Currency", "Confidence", "Unresolved fields")
	for i, q := range queue {
		gross := ""
		if q.Invoice.GrossAmount != 0 {
			gross = money.FormatAmount(q.Invoice.GrossAmount)
		}
		w.setRow(f, sheet, i+2,
			q.ID,
			string(q.Invoice.DocType),
			q.Invoice.Issuer.Name,
			gross,
			q.Invoice.Currency,
			fmt.Sprintf("%.2f", q.Confidence),
			strings.Join(q.Invoice.UnresolvedFields, ", "))
	}
	return nil
}

func (w *Writer) setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			w.logger.Warn("Invalid cell coordinates", zap.Int("col", col+1), zap.Int("row", row))
			continue
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			w.logger.Warn("Failed to set cell", zap.String("cell", cell), zap.Error(err))
		}
	}
}
