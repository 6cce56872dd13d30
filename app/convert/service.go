package convert

import (
	"context"
	"log/slog"
)

// Service converts PDFs to HTML, preferring local extraction for
// digitally-born documents and sending scanned ones to the OCR API.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

// PDFToHTML converts the given PDF. Documents with a usable embedded text
// layer are converted locally; the rest go through the remote OCR pipeline
// with the given language hint.
func (s *Service) PDFToHTML(ctx context.Context, pdfPath, lang string) (string, error) {
	text, err := ExtractPDFText(pdfPath)
	if err == nil && len(text) >= nativeTextThreshold {
		html, err := ExtractPDFHTML(pdfPath)
		if err == nil {
			slog.Debug("Converted PDF locally", "path", pdfPath, "text_length", len(text))
			return html, nil
		}
		slog.Warn("Local PDF conversion failed, falling back to OCR", "path", pdfPath, "error", err)
	}

	return s.client.PDFToHTML(ctx, pdfPath, lang)
}
