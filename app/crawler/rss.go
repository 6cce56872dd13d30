package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// RSSCollector adapts a regulator's published RSS/Atom feed into document
// descriptors. Some regulators announce circulars through press-release
// feeds long before the listing pages update; this collector lets those
// announcements enter the same pipeline as scraped documents.
type RSSCollector struct {
	regulator    Regulator
	sourceSystem string
	category     string
	feedURL      string
	client       *http.Client
	userAgent    string
	parser       *gofeed.Parser
}

func NewRSSCollector(regulator Regulator, sourceSystem, category, feedURL string,
	client *http.Client, userAgent string) *RSSCollector {
	return &RSSCollector{
		regulator:    regulator,
		sourceSystem: sourceSystem,
		category:     category,
		feedURL:      feedURL,
		client:       client,
		userAgent:    userAgent,
		parser:       gofeed.NewParser(),
	}
}

func (c *RSSCollector) Regulator() Regulator {
	return c.regulator
}

func (c *RSSCollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	data, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := c.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	docs := make([]Document, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		doc := Document{
			Regulator:     c.regulator,
			SourceSystem:  c.sourceSystem,
			Category:      c.category,
			Title:         item.Title,
			DocumentURL:   item.Link,
			PublishedDate: item.Published,
			SourcePageURL: c.feedURL,
			DocPath:       []string{string(c.regulator), c.category},
		}

		if doc.PublishedDate == "" && item.PublishedParsed != nil {
			doc.PublishedDate = item.PublishedParsed.Format("02/01/2006")
		}
		if doc.Year == "" && doc.PublishedDate != "" {
			if t, err := dateparse.ParseAny(doc.PublishedDate); err == nil {
				doc.Year = t.Format("2006")
			}
		}
		doc.SetMeta("guid", item.GUID)

		docs = append(docs, doc)
	}

	slog.Info("Feed collected", "feed", c.feedURL, "documents", len(docs))
	return docs, nil
}

func (c *RSSCollector) fetchFeed(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
