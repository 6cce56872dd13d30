package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SAMALawsCollector scrapes the SAMA rulebook "Laws and Implementing
// Regulations" book category. Each law lives on its own page carrying an
// info table (reference number, gregorian and hijri dates, status), a
// "download original PDF" link and the full law text, all of which feed the
// same conversion branch as the circulars.
type SAMALawsCollector struct {
	browser *Browser
	baseURL string
	limit   int // 0 means unlimited
}

const samaLawsCategoryPath = "/en/book-category/1361"

var (
	lawReferenceNo = regexp.MustCompile(`No:\s*(\S+)`)
	lawDateG       = regexp.MustCompile(`Date\(g\):\s*([^\s|]+)`)
	lawDateH       = regexp.MustCompile(`Date\(h\):\s*(\S+)`)
	lawDateHStatus = regexp.MustCompile(`Status:.*$`)
)

// lawSkipKeywords filters navigation links out of the category page; only
// links that name a law, regulation or rules survive.
var lawSkipKeywords = []string{
	"home", "search", "view updates", "terms and conditions", "sama rulebook",
	"entire section", "custom print", "print", "save as pdf", "chapter", "article",
}

func NewSAMALawsCollector(browser *Browser, baseURL string, limit int) *SAMALawsCollector {
	if baseURL == "" {
		baseURL = "https://rulebook.sama.gov.sa"
	}
	return &SAMALawsCollector{browser: browser, baseURL: baseURL, limit: limit}
}

func (c *SAMALawsCollector) Regulator() Regulator {
	return RegulatorSAMA
}

func (c *SAMALawsCollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	listingURL := c.baseURL + samaLawsCategoryPath

	page, err := c.browser.OpenPage(ctx, listingURL, 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to open SAMA laws listing: %w", err)
	}
	html, err := page.HTML()
	page.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read laws listing HTML: %w", err)
	}

	links, err := c.parseLawLinks(html)
	if err != nil {
		return nil, err
	}
	slog.Info("SAMA laws listing parsed", "laws", len(links))

	var docs []Document
	for i, link := range links {
		if c.limit > 0 && i >= c.limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail, err := c.fetchLawDetail(ctx, link.url)
		if err != nil {
			slog.Warn("Failed to extract SAMA law page", "url", link.url, "error", err)
		}

		docs = append(docs, c.buildDocument(link, detail, listingURL))
	}

	return docs, nil
}

type samaLawLink struct {
	title string
	url   string
}

type samaLawDetail struct {
	referenceNo   string
	dateGregorian string
	dateHijri     string
	status        string
	pdfLink       string
	contentHTML   string
}

// parseLawLinks collects the law links off the category page. The page has no
// dedicated listing table, so links are recognized by their text.
func (c *SAMALawsCollector) parseLawLinks(html string) ([]samaLawLink, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse laws listing HTML: %w", err)
	}

	seen := make(map[string]bool)
	var links []samaLawLink

	page.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Text())
		if len(title) < 3 {
			return
		}

		lower := strings.ToLower(title)
		for _, keyword := range lawSkipKeywords {
			if strings.Contains(lower, keyword) {
				return
			}
		}
		if !strings.Contains(lower, "law") && !strings.Contains(lower, "regulation") &&
			!strings.Contains(lower, "rules") {
			return
		}

		href, _ := a.Attr("href")
		url := c.absolute(href)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		links = append(links, samaLawLink{title: title, url: url})
	})

	return links, nil
}

func (c *SAMALawsCollector) fetchLawDetail(ctx context.Context, lawURL string) (samaLawDetail, error) {
	page, err := c.browser.OpenPage(ctx, lawURL, 60*time.Second)
	if err != nil {
		return samaLawDetail{}, err
	}
	html, err := page.HTML()
	page.Close()
	if err != nil {
		return samaLawDetail{}, fmt.Errorf("failed to read law page HTML: %w", err)
	}

	return c.parseLawDetail(html)
}

// parseLawDetail pulls the metadata, the original-PDF link and the law text
// out of one law page. Missing pieces degrade to empty fields; the document
// is still worth storing.
func (c *SAMALawsCollector) parseLawDetail(html string) (samaLawDetail, error) {
	page, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return samaLawDetail{}, fmt.Errorf("failed to parse law page HTML: %w", err)
	}

	var detail samaLawDetail

	if info := page.Find("table.info-table").First(); info.Length() > 0 {
		text := info.Text()
		if m := lawReferenceNo.FindStringSubmatch(text); m != nil {
			detail.referenceNo = strings.TrimSpace(m[1])
		}
		if m := lawDateG.FindStringSubmatch(text); m != nil {
			detail.dateGregorian = strings.TrimSpace(m[1])
		}
		if m := lawDateH.FindStringSubmatch(text); m != nil {
			// The status label can ride along on the hijri date cell.
			detail.dateHijri = strings.TrimSpace(lawDateHStatus.ReplaceAllString(m[1], ""))
		}
		if span := info.Find("span.document_status").First(); span.Length() > 0 {
			detail.status = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(span.Text()), "Status:"))
		}
	}

	page.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(a.Text()), "download original pdf") {
			return true
		}
		if href, ok := a.Attr("href"); ok {
			detail.pdfLink = c.absolute(href)
		}
		return false
	})

	content := page.Find("div#viewall-entire-section").First()
	if content.Length() == 0 {
		content = page.Find("div.node__content").First()
	}
	if content.Length() > 0 {
		content.Find("script, style, nav, header, footer").Remove()
		content.Find("table.info-table").Remove()
		content.Find("h2.page-title").Remove()

		detail.contentHTML, err = goquery.OuterHtml(content)
		if err != nil {
			return detail, fmt.Errorf("failed to serialize law content HTML: %w", err)
		}
	}

	return detail, nil
}

func (c *SAMALawsCollector) buildDocument(link samaLawLink, detail samaLawDetail, listingURL string) Document {
	doc := Document{
		Regulator:     RegulatorSAMA,
		SourceSystem:  "SAMA RULEBOOK",
		Category:      "Laws and Implementing Regulations",
		Title:         link.title,
		DocumentURL:   link.url,
		PublishedDate: detail.dateGregorian,
		ReferenceNo:   detail.referenceNo,
		Year:          extractYear(detail.dateGregorian),
		SourcePageURL: listingURL,
		DocumentHTML:  detail.contentHTML,
	}
	doc.DocPath = []string{string(RegulatorSAMA), doc.SourceSystem, doc.Category, doc.Title}

	if detail.pdfLink != "" {
		doc.SetMeta("org_pdf_link", detail.pdfLink)
		doc.FileType = "PDF"
	}
	if detail.status != "" {
		doc.SetMeta("status", detail.status)
	}
	if detail.dateHijri != "" {
		doc.SetMeta("issue_date_hijri", detail.dateHijri)
	}
	return doc
}

func (c *SAMALawsCollector) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + href
}
