package convert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// nativeTextThreshold is the minimum extracted-text length for a document to
// count as digitally born. Below it the PDF is treated as scanned and goes
// through OCR.
const nativeTextThreshold = 500

var (
	multiNewline   = regexp.MustCompile(`\n{3,}`)
	multiSpace     = regexp.MustCompile(`[ \t]{2,}`)
	hyphenBreak    = regexp.MustCompile(`(\w)-\n(\w)`)
	pageNumberLine = regexp.MustCompile(`(?m)^\s*(?:Page\s+)?\d+\s*(?:of\s+\d+)?\s*$`)
)

// HTMLToText strips markup from converted HTML and returns cleaned plain
// text. Boilerplate containers are dropped before text extraction.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, svg, header, footer, nav").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		sb.WriteString(sel.Text())
	})
	text := sb.String()
	if text == "" {
		text = doc.Text()
	}

	return CleanText(text), nil
}

// ReadableText runs readability extraction over page HTML, falling back to a
// plain strip when the page has no identifiable article body.
func ReadableText(html string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return CleanText(article.TextContent)
	}

	text, err := HTMLToText(html)
	if err != nil {
		return ""
	}
	return text
}

// CleanText normalizes OCR and extraction artifacts: rejoined hyphen breaks,
// collapsed whitespace, stripped bare page-number lines.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = pageNumberLine.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
