package crawler

import "context"

// Collector hides the site-specific navigation of one regulator. Every
// collector must return fully-populated descriptors; partial descriptors are
// the collector's bug, not the pipeline's problem.
type Collector interface {
	Regulator() Regulator
	FetchDocuments(ctx context.Context) ([]Document, error)
}
