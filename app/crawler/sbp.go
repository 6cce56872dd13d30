package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SBPCollector scrapes the State Bank of Pakistan site: circulars and
// notifications (department → year → table) plus regulatory returns
// (department → statement table). The markup is 1990s-era nested tables, so
// selection leans on structural heuristics rather than stable classes.
type SBPCollector struct {
	rootURL   string
	client    *http.Client
	userAgent string
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// circularTags are the reference-number markers that identify a real
// circular/letter row, everything else in the table is navigation chrome.
var circularTags = []string{"circular", "letter", "acr", "acfid", "bprd", "ih&", "fd", "smfd", "mfd"}

func NewSBPCollector(rootURL string, client *http.Client, userAgent string) *SBPCollector {
	if rootURL == "" {
		rootURL = "https://www.sbp.org.pk"
	}
	return &SBPCollector{rootURL: rootURL, client: client, userAgent: userAgent}
}

func (c *SBPCollector) Regulator() Regulator {
	return RegulatorSBP
}

func (c *SBPCollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document

	circulars, err := c.fetchSection(ctx, c.rootURL+"/circulars/cir.asp", "Circular")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SBP circulars: %w", err)
	}
	docs = append(docs, circulars...)

	notifications, err := c.fetchSection(ctx, c.rootURL+"/circulars/notifications.asp", "Notification")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SBP notifications: %w", err)
	}
	docs = append(docs, notifications...)

	returns, err := c.fetchRegulatoryReturns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SBP regulatory returns: %w", err)
	}
	docs = append(docs, returns...)

	slog.Info("SBP crawl complete", "circulars", len(circulars),
		"notifications", len(notifications), "regulatory_returns", len(returns))

	return docs, nil
}

// fetchSection walks a department index into per-year listing pages and
// parses each year table.
func (c *SBPCollector) fetchSection(ctx context.Context, indexURL, category string) ([]Document, error) {
	departments, err := c.departmentLinks(indexURL)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, dept := range departments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		years, err := c.yearLinks(dept)
		if err != nil {
			slog.Warn("Failed to list years for department", "department", dept.name, "error", err)
			continue
		}

		for _, year := range years {
			yearDocs, err := c.parseYearTable(year, category)
			if err != nil {
				slog.Warn("Failed to parse year listing", "department", dept.name,
					"year", year.year, "error", err)
				continue
			}
			docs = append(docs, yearDocs...)
		}
	}

	return docs, nil
}

type sbpDepartment struct {
	name string
	url  string
}

type sbpYearPage struct {
	department string
	year       string
	url        string
}

func (c *SBPCollector) departmentLinks(indexURL string) ([]sbpDepartment, error) {
	page, err := fetchPage(c.client, c.userAgent, indexURL)
	if err != nil {
		return nil, err
	}

	var departments []sbpDepartment
	page.Find(`table[bordercolor*="E8E8E8" i] a[href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)

		if !strings.HasSuffix(strings.ToLower(href), "/index.htm") {
			return
		}
		lower := strings.ToLower(href)
		if strings.Contains(lower, "whatnew") || strings.Contains(lower, "index.asp") {
			return
		}

		departments = append(departments, sbpDepartment{
			name: strings.TrimSpace(a.Text()),
			url:  absURL(indexURL, href),
		})
	})

	slog.Debug("SBP departments discovered", "url", indexURL, "count", len(departments))
	return departments, nil
}

func (c *SBPCollector) yearLinks(dept sbpDepartment) ([]sbpYearPage, error) {
	page, err := fetchPage(c.client, c.userAgent, dept.url)
	if err != nil {
		return nil, err
	}

	var years []sbpYearPage
	page.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		label := strings.TrimSpace(a.Text())
		if !yearPattern.MatchString(label) {
			return
		}
		href, _ := a.Attr("href")
		years = append(years, sbpYearPage{
			department: dept.name,
			year:       label,
			url:        absURL(dept.url, href),
		})
	})

	return years, nil
}

// parseYearTable extracts document rows from a year listing. Circular pages
// use four-column rows (ref / date / title+link / urdu), notification pages
// three-column rows (ref / date / title+link). The densest table on the page
// is the listing.
func (c *SBPCollector) parseYearTable(year sbpYearPage, category string) ([]Document, error) {
	page, err := fetchPage(c.client, c.userAgent, year.url)
	if err != nil {
		return nil, err
	}

	table := densestTable(page)
	if table == nil {
		return nil, nil
	}

	var docs []Document
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() != 4 && tds.Length() != 3 {
			return
		}

		refNo := strings.TrimSpace(tds.Eq(0).Text())
		if refNo == "" {
			return
		}
		lowerRef := strings.ToLower(refNo)
		if strings.Contains(lowerRef, "what's new") || strings.Contains(lowerRef, "homeabout") ||
			strings.Contains(lowerRef, "publications") {
			return
		}
		if tds.Length() == 4 && !containsAny(lowerRef, circularTags) {
			return
		}

		link := tds.Eq(2).Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok || !validHref(href) || strings.Contains(strings.ToLower(href), "whatnew") {
			return
		}

		doc := Document{
			Regulator:     RegulatorSBP,
			SourceSystem:  "SBP-" + strings.ToUpper(category),
			Category:      category,
			Title:         strings.TrimSpace(link.Text()),
			DocumentURL:   absURL(year.url, href),
			PublishedDate: strings.TrimSpace(tds.Eq(1).Text()),
			ReferenceNo:   refNo,
			Department:    year.department,
			Year:          year.year,
			SourcePageURL: year.url,
			DocPath:       []string{string(RegulatorSBP), category, year.department},
		}

		if tds.Length() == 4 {
			urdu := tds.Eq(3).Find("a[href]").First()
			if urduHref, ok := urdu.Attr("href"); ok && validHref(urduHref) {
				doc.UrduURL = absURL(year.url, urduHref)
			}
		}

		if doc.Title != "" {
			docs = append(docs, doc)
		}
	})

	return docs, nil
}

// fetchRegulatoryReturns parses the statement/circular tables. These rows
// carry no published date; the pipeline inserts them without retrieval.
func (c *SBPCollector) fetchRegulatoryReturns(ctx context.Context) ([]Document, error) {
	indexURL := c.rootURL + "/Regulatory_Returns/index.asp"
	page, err := fetchPage(c.client, c.userAgent, indexURL)
	if err != nil {
		return nil, err
	}

	var departments []sbpDepartment
	page.Find(`table[bordercolor*="E8E8E8" i] a[href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		lower := strings.ToLower(strings.TrimSpace(href))
		if !strings.HasSuffix(lower, ".htm") {
			return
		}
		if strings.Contains(lower, "index") || strings.Contains(lower, "whatnew") {
			return
		}
		departments = append(departments, sbpDepartment{
			name: strings.TrimSpace(a.Text()),
			url:  absURL(indexURL, href),
		})
	})

	var docs []Document
	for _, dept := range departments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		deptDocs, err := c.parseReturnsDepartment(dept)
		if err != nil {
			slog.Warn("Failed to parse regulatory returns department", "department", dept.name, "error", err)
			continue
		}
		docs = append(docs, deptDocs...)
	}

	return docs, nil
}

func (c *SBPCollector) parseReturnsDepartment(dept sbpDepartment) ([]Document, error) {
	page, err := fetchPage(c.client, c.userAgent, dept.url)
	if err != nil {
		return nil, err
	}

	var docs []Document
	page.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 3 {
			return
		}

		header := strings.ToLower(rows.Eq(1).Text())
		if !strings.Contains(header, "statement") && !strings.Contains(header, "return") {
			return
		}
		if !strings.Contains(header, "circular") {
			return
		}

		rows.Slice(2, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			tds := tr.Find("td")
			if tds.Length() < 6 {
				return
			}

			statementName := strings.TrimSpace(tds.Eq(1).Text())
			statementURL := ""
			if a := tds.Eq(1).Find("a[href]").First(); a.Length() > 0 {
				if href, ok := a.Attr("href"); ok && validHref(href) {
					statementURL = absURL(dept.url, href)
					statementName = strings.TrimSpace(a.Text())
				}
			}

			circularRef := strings.TrimSpace(tds.Eq(2).Text())
			circularURL := ""
			if a := tds.Eq(2).Find("a[href]").First(); a.Length() > 0 {
				if href, ok := a.Attr("href"); ok && validHref(href) {
					circularURL = absURL(dept.url, href)
					circularRef = strings.TrimSpace(a.Text())
				}
			}
			if circularRef == "" {
				return
			}

			doc := Document{
				Regulator:     RegulatorSBP,
				SourceSystem:  "SBP-REGULATORY RETURN",
				Category:      "Regulatory Return",
				Title:         circularRef,
				DocumentURL:   circularURL,
				ReferenceNo:   circularRef,
				Department:    dept.name,
				SourcePageURL: dept.url,
				DocPath:       []string{string(RegulatorSBP), "Regulatory Return", dept.name},
			}
			doc.SetMeta("statement_name", statementName)
			doc.SetMeta("statement_url", statementURL)
			doc.SetMeta("frequency", strings.TrimSpace(tds.Eq(3).Text()))
			doc.SetMeta("due_date", strings.TrimSpace(tds.Eq(4).Text()))
			doc.SetMeta("submission_mode", strings.TrimSpace(tds.Eq(5).Text()))

			docs = append(docs, doc)
		})
	})

	return docs, nil
}

// densestTable returns the table with the most rows, or nil when the page has
// no tables at all.
func densestTable(page *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestRows := -1
	page.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr").Length()
		if rows > bestRows {
			best = table
			bestRows = rows
		}
	})
	return best
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
