package pipeline

import (
	"context"

	"github.com/regpipe/regpipe/app/analyzer"
	"github.com/regpipe/regpipe/app/crawler"
)

// Retriever obtains a local copy of a document's file and returns its path
// and content hash.
type Retriever interface {
	Download(ctx context.Context, doc *crawler.Document) (string, string, error)
}

// Converter turns a local PDF into HTML, OCR-assisted when needed.
type Converter interface {
	PDFToHTML(ctx context.Context, pdfPath, lang string) (string, error)
}

// Analyzer extracts structured compliance requirements from document HTML.
type Analyzer interface {
	AnalyzeHTML(ctx context.Context, html string) (*analyzer.Result, error)
}
