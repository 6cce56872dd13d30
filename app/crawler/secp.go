package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
)

// SECPCollector scrapes the SECP laws sections. The listing tables are
// rendered client-side, so this collector drives the shared headless browser
// instead of plain HTTP. Rows expose a "Download" link pointing at a wpdmdl
// binary URL; the downloader recognizes those and saves them directly.
type SECPCollector struct {
	browser  *Browser
	baseURL  string
	sections map[string]string
}

func NewSECPCollector(browser *Browser, baseURL string) *SECPCollector {
	if baseURL == "" {
		baseURL = "https://www.secp.gov.pk"
	}
	return &SECPCollector{
		browser: browser,
		baseURL: baseURL,
		sections: map[string]string{
			"Rules":         baseURL + "/laws/rules/",
			"Regulations":   baseURL + "/laws/regulations/",
			"Notifications": baseURL + "/laws/notifications/",
		},
	}
}

func (c *SECPCollector) Regulator() Regulator {
	return RegulatorSECP
}

func (c *SECPCollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document

	for category, sectionURL := range c.sections {
		sectionDocs, err := c.crawlSection(ctx, category, sectionURL)
		if err != nil {
			return nil, fmt.Errorf("failed to crawl SECP %s: %w", category, err)
		}
		slog.Info("SECP section crawled", "category", category, "documents", len(sectionDocs))
		docs = append(docs, sectionDocs...)
	}

	return docs, nil
}

func (c *SECPCollector) crawlSection(ctx context.Context, category, sectionURL string) ([]Document, error) {
	page, err := c.browser.OpenPage(ctx, sectionURL, 150*time.Second)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if _, err := page.Timeout(30 * time.Second).Element("table tbody"); err != nil {
		slog.Warn("No listing table found", "category", category, "url", sectionURL)
		return nil, nil
	}

	// Switch the length dropdown to "All" so pagination does not hide rows.
	if dropdown, err := page.Element("select"); err == nil {
		if err := dropdown.Select([]string{`[value="-1"]`}, true, rod.SelectorTypeCSSSector); err == nil {
			time.Sleep(1500 * time.Millisecond)
		}
	}

	rows, err := page.Elements("table tbody tr")
	if err != nil {
		return nil, fmt.Errorf("failed to read listing rows: %w", err)
	}

	var docs []Document
	for i, row := range rows {
		titleCell, err := row.Element("td:nth-child(2)")
		if err != nil {
			continue
		}
		title, err := titleCell.Text()
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}

		link, err := row.Element("a")
		if err != nil {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil || !validHref(*href) {
			continue
		}

		downloadURL := *href
		if strings.HasPrefix(downloadURL, "/") {
			downloadURL = c.baseURL + downloadURL
		}

		doc := Document{
			Regulator:     RegulatorSECP,
			SourceSystem:  "SECP-LAWS",
			Category:      category,
			Title:         strings.TrimSpace(title),
			DocumentURL:   downloadURL,
			SourcePageURL: sectionURL,
			DocPath:       []string{string(RegulatorSECP), category},
		}
		doc.SetMeta("download_url", downloadURL)
		doc.SetMeta("table_row", fmt.Sprintf("%d", i))

		docs = append(docs, doc)
	}

	return docs, nil
}
