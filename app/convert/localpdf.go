package convert

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ExtractPDFText pulls the embedded text layer out of a local PDF. Scanned
// documents yield little or nothing here.
func ExtractPDFText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return CleanText(sb.String()), nil
}

// ExtractPDFHTML renders a digitally-born PDF's pages to HTML locally,
// avoiding a round trip to the conversion API.
func ExtractPDFHTML(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.HTML(i, false)
		if err != nil {
			return "", fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		sb.WriteString(page)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
