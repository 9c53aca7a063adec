// Package extract turns uploaded file bytes into plaintext via langchaingo
// document loaders, selected by file extension.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"github.com/papper-ai/vaultd/internal/domain"
)

// Extractor converts raw uploaded bytes into plaintext.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the file into plaintext. Unknown extensions and parse
// failures yield domain.ErrUnsupportedFileType. A file that parses to
// zero-length text returns "" with a nil error; the caller classifies that
// as an empty file.
func (e *Extractor) Extract(ctx context.Context, name string, raw []byte) (string, error) {
	var loader documentloaders.Loader

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".log":
		loader = documentloaders.NewText(bytes.NewReader(raw))
	case ".csv":
		loader = documentloaders.NewCSV(bytes.NewReader(raw))
	case ".html", ".htm":
		loader = documentloaders.NewHTML(bytes.NewReader(raw))
	case ".pdf":
		loader = documentloaders.NewPDF(bytes.NewReader(raw), int64(len(raw)))
	default:
		return "", fmt.Errorf("%s: %w", name, domain.ErrUnsupportedFileType)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", name, err, domain.ErrUnsupportedFileType)
	}

	return joinPages(docs), nil
}

func joinPages(docs []schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if t := strings.TrimSpace(d.PageContent); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
