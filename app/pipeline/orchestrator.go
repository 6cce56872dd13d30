package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/regpipe/regpipe/app/crawler"
	"github.com/regpipe/regpipe/app/database"
)

// conversionSanityMin is the minimum length for converted HTML to be treated
// as a real conversion result rather than an empty or error page.
const conversionSanityMin = 50

// samaOCRLanguages is the OCR hint for SAMA circulars, which mix English and
// Arabic in one document.
const samaOCRLanguages = "eng+ara"

// StepError is one failed step in a run, kept for the end-of-run summary.
type StepError struct {
	Title   string
	Step    string
	Message string
}

// Summary reports the outcome of one regulator run.
type Summary struct {
	Regulator string
	New       int
	Existing  int
	Skipped   int
	Succeeded int
	Failed    int
	Errors    []StepError
}

// Partition is the result of splitting a descriptor batch against the store.
// Every input descriptor lands in exactly one of the three slices.
type Partition struct {
	New      []crawler.Document
	Existing []crawler.Document
	Skipped  []crawler.Document
}

// Orchestrator drives one regulator's documents through filtering, category
// resolution, branch-specific handling and persistence. Processing is
// sequential; a failure in one descriptor never stops the rest of the batch.
type Orchestrator struct {
	regulations database.RegulationRepository
	categories  database.CategoryRepository
	audit       *AuditLog
	retriever   Retriever
	converter   Converter
	analyzer    Analyzer // nil disables compliance analysis
}

func NewOrchestrator(
	regulations database.RegulationRepository,
	categories database.CategoryRepository,
	audit *AuditLog,
	retriever Retriever,
	converter Converter,
	analyzer Analyzer,
) *Orchestrator {
	return &Orchestrator{
		regulations: regulations,
		categories:  categories,
		audit:       audit,
		retriever:   retriever,
		converter:   converter,
		analyzer:    analyzer,
	}
}

// Run fetches the collector's documents and processes the new ones. A
// collector failure is fatal to the run; everything past that point is
// caught per descriptor.
func (o *Orchestrator) Run(ctx context.Context, collector crawler.Collector) (*Summary, error) {
	regulator := string(collector.Regulator())
	slog.Info("Pipeline run started", "regulator", regulator)

	docs, err := collector.FetchDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector failed for %s: %w", regulator, err)
	}
	slog.Info("Collector finished", "regulator", regulator, "documents", len(docs))

	part := o.FilterNewDocuments(docs)
	summary := &Summary{
		Regulator: regulator,
		New:       len(part.New),
		Existing:  len(part.Existing),
		Skipped:   len(part.Skipped),
	}

	for i := range part.New {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run cancelled: %w", err)
		}
		o.processDocument(ctx, i, &part.New[i], summary)
	}

	slog.Info("Pipeline run finished", "regulator", regulator,
		"new", summary.New, "existing", summary.Existing, "skipped", summary.Skipped,
		"succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// FilterNewDocuments splits descriptors into new, existing and skipped.
// Documents without a published date pass through only for the categories
// that legitimately lack one; the rest are skipped so they cannot be stored
// under an ambiguous dedup key.
func (o *Orchestrator) FilterNewDocuments(docs []crawler.Document) *Partition {
	part := &Partition{}

	for i := range docs {
		doc := docs[i]

		publishedDate := strings.TrimSpace(doc.PublishedDate)
		dateless := publishedDate == ""
		if dateless &&
			!isRegulatoryReturn(doc.Category) &&
			!strings.EqualFold(doc.SourceSystem, "dpc-circular") {
			slog.Warn("Skipping document without published date",
				"title", doc.Title, "category", doc.Category, "source_system", doc.SourceSystem)
			o.audit.Log(nil, StepFilter, StatusError,
				fmt.Sprintf("skipped %q: no published date and no dateless policy for category %q",
					doc.Title, doc.Category), doc.DocumentURL)
			part.Skipped = append(part.Skipped, doc)
			continue
		}

		exists, err := o.regulations.DocumentExists(doc.Title, publishedDate, doc.DocPath)
		if err != nil {
			slog.Error("Existence check failed, skipping document", "title", doc.Title, "error", err)
			o.audit.Log(nil, StepFilter, StatusError,
				fmt.Sprintf("existence check failed for %q: %v", doc.Title, err), doc.DocumentURL)
			part.Skipped = append(part.Skipped, doc)
			continue
		}

		if exists {
			part.Existing = append(part.Existing, doc)
		} else {
			part.New = append(part.New, doc)
		}
	}

	return part
}

// processDocument runs one descriptor through the per-document state machine.
// Exactly one branch executes; all failures are logged and confined here.
func (o *Orchestrator) processDocument(ctx context.Context, index int, doc *crawler.Document, summary *Summary) {
	slog.Info("Processing document", "index", index, "title", doc.Title,
		"regulator", doc.Regulator, "category", doc.Category)

	categoryID := o.resolveCategory(doc)

	switch {
	case isRegulatoryReturn(doc.Category):
		o.processRegulatoryReturn(doc, categoryID, summary)
	case doc.Regulator == crawler.RegulatorSAMA:
		o.processSAMA(ctx, doc, categoryID, summary)
	default:
		o.processNormal(ctx, doc, categoryID, summary)
	}
}

// processRegulatoryReturn persists the descriptor directly: returns are
// structural entries with no file behind them, so there is nothing to
// retrieve or convert.
func (o *Orchestrator) processRegulatoryReturn(doc *crawler.Document, categoryID *int64, summary *Summary) {
	id, err := o.regulations.InsertRegulation(doc, categoryID, "")
	if err != nil {
		o.fail(summary, doc, StepInsert, err)
		return
	}

	doc.ID = id
	summary.Succeeded++
	o.audit.Log(&id, StepInsert, StatusSuccess,
		fmt.Sprintf("inserted regulatory return %q", doc.Title), doc.DocumentURL)
}

// processSAMA handles SAMA circulars: the detail page HTML is already in the
// descriptor, and an org_pdf_link points at the official PDF when one exists.
// The PDF is converted for the audit trail, but the row is inserted whether
// or not conversion works out.
func (o *Orchestrator) processSAMA(ctx context.Context, doc *crawler.Document, categoryID *int64, summary *Summary) {
	htmlContent := doc.DocumentHTML
	contentHash := ""

	if orgPDFLink := doc.Meta("org_pdf_link"); orgPDFLink != "" {
		converted, hash, ok := o.convertSAMAPDF(ctx, doc, orgPDFLink, summary)
		// A failed conversion leaves htmlContent empty: analysis is skipped
		// rather than run over the unconverted detail page.
		htmlContent = converted
		contentHash = hash
		if ok && converted != "" {
			doc.SetMeta("org_pdf_html", converted)
		}
	}

	id, err := o.regulations.InsertRegulation(doc, categoryID, contentHash)
	if err != nil {
		o.fail(summary, doc, StepInsert, err)
		return
	}

	doc.ID = id
	summary.Succeeded++
	o.audit.Log(&id, StepInsert, StatusSuccess,
		fmt.Sprintf("inserted SAMA regulation %q", doc.Title), doc.DocumentURL)

	if htmlContent != "" {
		o.analyze(ctx, id, doc, htmlContent, summary)
	}
}

// convertSAMAPDF downloads the official PDF and converts it to HTML with a
// bilingual OCR hint. The local PDF is deleted either way; the store keeps
// the HTML, not the binary.
func (o *Orchestrator) convertSAMAPDF(ctx context.Context, doc *crawler.Document, orgPDFLink string, summary *Summary) (string, string, bool) {
	pdfDoc := *doc
	pdfDoc.DocumentURL = orgPDFLink
	pdfDoc.FileType = "PDF"

	path, hash, err := o.retriever.Download(ctx, &pdfDoc)
	if err != nil {
		o.stepError(summary, doc, StepDownload, err)
		return "", "", false
	}
	defer os.Remove(path)
	o.audit.Log(nil, StepDownload, StatusSuccess,
		fmt.Sprintf("downloaded PDF for %q", doc.Title), orgPDFLink)

	converted, err := o.converter.PDFToHTML(ctx, path, samaOCRLanguages)
	if err != nil {
		o.stepError(summary, doc, StepConversion, err)
		return "", hash, false
	}
	if len(strings.TrimSpace(converted)) < conversionSanityMin {
		o.stepError(summary, doc, StepConversion,
			fmt.Errorf("conversion output too short (%d chars)", len(strings.TrimSpace(converted))))
		return "", hash, false
	}

	o.audit.Log(nil, StepConversion, StatusSuccess,
		fmt.Sprintf("converted PDF for %q (%d chars)", doc.Title, len(converted)), orgPDFLink)
	return converted, hash, true
}

// processNormal is the default branch: retrieve the file, then persist.
// Retrieval failure is terminal for the descriptor; nothing is inserted.
func (o *Orchestrator) processNormal(ctx context.Context, doc *crawler.Document, categoryID *int64, summary *Summary) {
	path, hash, err := o.retriever.Download(ctx, doc)
	if err != nil {
		o.fail(summary, doc, StepDownload, err)
		return
	}
	defer os.Remove(path)
	o.audit.Log(nil, StepDownload, StatusSuccess,
		fmt.Sprintf("downloaded %q", doc.Title), doc.DocumentURL)

	id, err := o.regulations.InsertRegulation(doc, categoryID, hash)
	if err != nil {
		o.fail(summary, doc, StepInsert, err)
		return
	}

	doc.ID = id
	summary.Succeeded++
	o.audit.Log(&id, StepInsert, StatusSuccess,
		fmt.Sprintf("inserted regulation %q", doc.Title), doc.DocumentURL)
}

// analyze runs compliance analysis over the document HTML and attaches the
// result to the stored row. Failures are logged and do not touch the row.
func (o *Orchestrator) analyze(ctx context.Context, regulationID int64, doc *crawler.Document, html string, summary *Summary) {
	if o.analyzer == nil {
		return
	}

	o.audit.Log(&regulationID, StepAnalysis, StatusStarted,
		fmt.Sprintf("analyzing %q", doc.Title), doc.DocumentURL)

	result, err := o.analyzer.AnalyzeHTML(ctx, html)
	if err != nil {
		o.stepError(summary, doc, StepAnalysis, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		o.stepError(summary, doc, StepAnalysis, err)
		return
	}

	if err := o.regulations.StoreComplianceAnalysis(regulationID, string(data), len(result.Requirements)); err != nil {
		o.stepError(summary, doc, StepAnalysis, err)
		return
	}

	o.audit.Log(&regulationID, StepAnalysis, StatusSuccess,
		fmt.Sprintf("stored analysis with %d requirements", len(result.Requirements)), doc.DocumentURL)
}

// resolveCategory walks the descriptor's doc path root to leaf, creating
// missing nodes, and returns the leaf id. A repository failure degrades to a
// nil category instead of failing the descriptor.
func (o *Orchestrator) resolveCategory(doc *crawler.Document) *int64 {
	if len(doc.DocPath) == 0 {
		return nil
	}

	var parentID *int64
	for _, title := range doc.DocPath {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		id, err := o.categories.GetFolderID(title, parentID)
		if err != nil {
			o.categoryError(doc, title, err)
			return nil
		}
		if id == nil {
			newID, err := o.categories.InsertFolder(title, parentID)
			if err != nil {
				o.categoryError(doc, title, err)
				return nil
			}
			id = &newID
		}
		parentID = id
	}

	return parentID
}

func (o *Orchestrator) categoryError(doc *crawler.Document, title string, err error) {
	slog.Error("Category resolution failed, continuing without category",
		"title", doc.Title, "node", title, "error", err)
	o.audit.Log(nil, StepCategory, StatusError,
		fmt.Sprintf("category resolution failed at %q for %q: %v", title, doc.Title, err),
		doc.DocumentURL)
}

// fail records a terminal failure for a descriptor.
func (o *Orchestrator) fail(summary *Summary, doc *crawler.Document, step string, err error) {
	summary.Failed++
	o.stepError(summary, doc, step, err)
}

// stepError records a non-terminal step failure.
func (o *Orchestrator) stepError(summary *Summary, doc *crawler.Document, step string, err error) {
	slog.Error("Pipeline step failed", "step", step, "title", doc.Title, "error", err)
	summary.Errors = append(summary.Errors, StepError{Title: doc.Title, Step: step, Message: err.Error()})
	o.audit.Log(nil, step, StatusError, fmt.Sprintf("%q: %v", doc.Title, err), doc.DocumentURL)
}

func isRegulatoryReturn(category string) bool {
	return strings.EqualFold(category, "regulatory returns") ||
		strings.EqualFold(category, "regulatory return")
}
