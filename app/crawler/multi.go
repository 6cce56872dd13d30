package crawler

import (
	"context"
	"fmt"
	"log/slog"
)

// MultiCollector merges one regulator's primary collector with supplemental
// sources such as press-release feeds. A primary failure fails the fetch; a
// supplemental failure only loses that source's documents.
type MultiCollector struct {
	primary      Collector
	supplemental []Collector
}

var _ Collector = (*MultiCollector)(nil)

func NewMultiCollector(primary Collector, supplemental ...Collector) *MultiCollector {
	return &MultiCollector{primary: primary, supplemental: supplemental}
}

func (c *MultiCollector) Regulator() Regulator {
	return c.primary.Regulator()
}

func (c *MultiCollector) FetchDocuments(ctx context.Context) ([]Document, error) {
	docs, err := c.primary.FetchDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("primary collector failed: %w", err)
	}

	for _, collector := range c.supplemental {
		extra, err := collector.FetchDocuments(ctx)
		if err != nil {
			slog.Warn("Supplemental collector failed, continuing without it",
				"regulator", collector.Regulator(), "error", err)
			continue
		}
		docs = append(docs, extra...)
	}

	return docs, nil
}
