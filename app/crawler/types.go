package crawler

// Regulator identifies the source authority a document originates from.
type Regulator string

const (
	RegulatorSBP  Regulator = "SBP"
	RegulatorSECP Regulator = "SECP"
	RegulatorSAMA Regulator = "SAMA"
)

// Document is the normalized descriptor every collector produces. Collectors
// are responsible for fully populating it (category, doc path, URLs) before
// it reaches the pipeline; the pipeline does no further enrichment.
type Document struct {
	Regulator    Regulator
	SourceSystem string
	Category     string
	Title        string

	DocumentURL   string
	UrduURL       string
	PublishedDate string // free-form source format, not guaranteed parseable
	ReferenceNo   string

	DocPath       []string // hierarchical category breadcrumb, root first
	Department    string
	Year          string
	SourcePageURL string
	FileType      string

	ExtraMeta    map[string]string // source-specific bag, may carry org_pdf_link
	DocumentHTML string            // pre-extracted content, regulator-specific

	ID int64 // 0 until persisted, assigned exactly once
}

// Meta returns a value from ExtraMeta, tolerating a nil map.
func (d *Document) Meta(key string) string {
	if d.ExtraMeta == nil {
		return ""
	}
	return d.ExtraMeta[key]
}

// SetMeta stores a value in ExtraMeta, allocating the map on first use.
func (d *Document) SetMeta(key, value string) {
	if d.ExtraMeta == nil {
		d.ExtraMeta = make(map[string]string)
	}
	d.ExtraMeta[key] = value
}
