// Package docsource loads scanned documents from disk into raw pipeline
// input. PDFs are read through their embedded text layer via mupdf; plain
// .txt files (pre-run OCR output) are passed through as-is.
package docsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/models"
)

// Loader reads document files into RawDocuments
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a Loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads one file. Text extracted from a PDF text layer carries no
// OCR confidence estimate, so SourceConfidence stays zero.
func (l *Loader) Load(path string) (models.RawDocument, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return models.RawDocument{}, fmt.Errorf("document not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path)
	case ".txt":
		return l.loadText(path)
	default:
		return models.RawDocument{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func (l *Loader) loadPDF(path string) (models.RawDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			l.logger.Warn("Failed to read PDF page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err))
			continue
		}
		pages = append(pages, text)
	}

	text := strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return models.RawDocument{}, fmt.Errorf("no text layer in PDF: %s", path)
	}

	l.logger.Debug("PDF loaded",
		zap.String("path", path),
		zap.Int("pages", len(pages)),
		zap.Int("chars", len(text)))
	return models.RawDocument{Text: text}, nil
}

func (l *Loader) loadText(path string) (models.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("failed to read file: %w", err)
	}
	return models.RawDocument{Text: string(content)}, nil
}
