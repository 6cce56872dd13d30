package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
)

// SAMACollector scrapes the SAMA rulebook circulars. The listing is a
// client-rendered DataTable, so the shared headless browser loads the pages
// and goquery parses the resulting HTML. Each circular's detail page yields
// an original-PDF link (carried in extra meta for the pipeline's conversion
// branch) and/or the pre-extracted document content HTML.
type SAMACollector struct {
	browser *Browser
	baseURL string
	limit   int // 0 means unlimited; used to cap detail-page visits
}

var fourDigitYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func NewSAMACollector(browser *Browser, baseURL string, limit int) *SAMACollector {
	if baseURL == "" {
		baseURL = "https://rulebook.sama.gov.sa"
	}
	return &SAMACollector{browser: browser, baseURL: baseURL, limit: limit}
}

func (c *SAMACollector) Regulator() Regulator {
	return RegulatorSAMA
}

func (c *SAMACollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	listingURL := c.baseURL + "/en/sama-circulars"

	page, err := c.browser.OpenPage(ctx, listingURL, 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to open SAMA circulars listing: %w", err)
	}

	// Flip the DataTables length dropdown to "All" before reading rows.
	if dropdown, err := page.Element(`select[name$="_length"]`); err == nil {
		if err := dropdown.Select([]string{`[value="-1"]`}, true, rod.SelectorTypeCSSSector); err == nil {
			time.Sleep(5 * time.Second)
		}
	}

	html, err := page.HTML()
	page.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read listing HTML: %w", err)
	}

	rows, err := c.parseListing(html)
	if err != nil {
		return nil, err
	}
	slog.Info("SAMA listing parsed", "rows", len(rows))

	var docs []Document
	for i, row := range rows {
		if c.limit > 0 && i >= c.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc := c.buildDocument(row)

		pdfLink, contentHTML, err := c.fetchDetail(ctx, row.detailURL)
		if err != nil {
			slog.Warn("Failed to extract SAMA detail page", "url", row.detailURL, "error", err)
		}
		if pdfLink != "" {
			doc.SetMeta("org_pdf_link", pdfLink)
			doc.FileType = "PDF"
		}
		doc.DocumentHTML = contentHTML

		docs = append(docs, doc)
	}

	return docs, nil
}

type samaRow struct {
	circularNo string
	title      string
	issueDateG string
	issueDateH string
	status     string
	scope      string
	detailURL  string
}

// parseListing reads the circulars table out of the rendered listing page.
func (c *SAMACollector) parseListing(html string) ([]samaRow, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	var rows []samaRow
	page.Find("table.circulars tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 6 {
			return
		}

		row := samaRow{
			issueDateG: strings.TrimSpace(tds.Eq(2).Text()),
			issueDateH: strings.TrimSpace(tds.Eq(3).Text()),
			status:     strings.TrimSpace(tds.Eq(4).Text()),
			scope:      strings.TrimSpace(tds.Eq(5).Text()),
		}

		if a := tds.Eq(0).Find("a").First(); a.Length() > 0 {
			row.circularNo = strings.TrimSpace(a.Text())
			if href, ok := a.Attr("href"); ok {
				row.detailURL = c.absolute(href)
			}
		} else {
			row.circularNo = strings.TrimSpace(tds.Eq(0).Text())
		}

		if a := tds.Eq(1).Find("a").First(); a.Length() > 0 {
			row.title = strings.TrimSpace(a.Text())
			if row.detailURL == "" {
				if href, ok := a.Attr("href"); ok {
					row.detailURL = c.absolute(href)
				}
			}
		} else {
			row.title = strings.TrimSpace(tds.Eq(1).Text())
		}

		if row.detailURL == "" || row.title == "" {
			return
		}
		rows = append(rows, row)
	})

	return rows, nil
}

func (c *SAMACollector) buildDocument(row samaRow) Document {
	doc := Document{
		Regulator:     RegulatorSAMA,
		SourceSystem:  "SAMA RULEBOOK",
		Category:      "SAMA Circulars",
		Title:         row.title,
		DocumentURL:   row.detailURL,
		PublishedDate: row.issueDateG,
		ReferenceNo:   row.circularNo,
		Year:          extractYear(row.issueDateG),
		SourcePageURL: c.baseURL + "/en/sama-circulars",
	}
	doc.DocPath = []string{string(RegulatorSAMA), doc.SourceSystem, doc.Category, doc.Title}
	doc.SetMeta("issue_date_hijri", row.issueDateH)
	doc.SetMeta("status", row.status)
	doc.SetMeta("scope_of_application", row.scope)
	return doc
}

// fetchDetail pulls the original-PDF link and the cleaned content HTML from a
// circular detail page.
func (c *SAMACollector) fetchDetail(ctx context.Context, detailURL string) (pdfLink, contentHTML string, err error) {
	page, err := c.browser.OpenPage(ctx, detailURL, 60*time.Second)
	if err != nil {
		return "", "", err
	}
	html, err := page.HTML()
	page.Close()
	if err != nil {
		return "", "", fmt.Errorf("failed to read detail HTML: %w", err)
	}

	return c.parseDetail(html)
}

func (c *SAMACollector) parseDetail(html string) (pdfLink, contentHTML string, err error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse detail HTML: %w", err)
	}

	if a := page.Find(`a.icopdf[href*=".pdf"]`).First(); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok {
			pdfLink = c.absolute(href)
		}
	}

	content := page.Find("div.node__content").First()
	if content.Length() > 0 {
		content.Find("script, style, nav, header, footer").Remove()
		content.Find("table.info-table").Remove()
		content.Find("div.book-notification").Remove()

		contentHTML, err = goquery.OuterHtml(content)
		if err != nil {
			return pdfLink, "", fmt.Errorf("failed to serialize content HTML: %w", err)
		}
	}

	return pdfLink, contentHTML, nil
}

func (c *SAMACollector) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + href
}

// extractYear pulls a four-digit year out of a free-form date string.
func extractYear(date string) string {
	if date == "" {
		return ""
	}
	if match := fourDigitYear.FindString(date); match != "" {
		return match
	}
	parts := strings.Split(date, "/")
	if len(parts) == 3 && len(parts[2]) == 4 {
		return parts[2]
	}
	return ""
}
