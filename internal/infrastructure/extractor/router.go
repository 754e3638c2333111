package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kmelnikov/course-assistant/internal/core/domain"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
)

// Router picks the extractor for a document by file extension and falls
// back to plain text.
type Router struct {
	plaintext   ports.TextExtractor
	pdf         ports.TextExtractor
	spreadsheet ports.TextExtractor
}

func NewRouter(plaintext, pdf, spreadsheet ports.TextExtractor) *Router {
	return &Router{plaintext: plaintext, pdf: pdf, spreadsheet: spreadsheet}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return r.pdf.Extract(ctx, doc)
	case ".xlsx", ".xlsm":
		return r.spreadsheet.Extract(ctx, doc)
	default:
		return r.plaintext.Extract(ctx, doc)
	}
}
