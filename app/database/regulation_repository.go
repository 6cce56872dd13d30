package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/regpipe/regpipe/app/crawler"
)

// docPathSeparator joins breadcrumb segments into the stored doc_path column.
const docPathSeparator = " / "

// SQLRegulationRepository handles database operations for regulation rows.
type SQLRegulationRepository struct {
	db *DB
}

var _ RegulationRepository = (*SQLRegulationRepository)(nil)

// NewRegulationRepository creates a new regulation repository.
func NewRegulationRepository(db *DB) *SQLRegulationRepository {
	return &SQLRegulationRepository{db: db}
}

// JoinDocPath renders a breadcrumb the way it is stored in the doc_path column.
func JoinDocPath(docPath []string) string {
	return strings.Join(docPath, docPathSeparator)
}

// DocumentExists checks whether a row with the same dedup key already exists.
func (r *SQLRegulationRepository) DocumentExists(title, publishedDate string, docPath []string) (bool, error) {
	query := "SELECT id FROM regulations WHERE title = ?"
	args := []interface{}{title}

	if publishedDate != "" {
		query += " AND published_date = ?"
		args = append(args, publishedDate)
	} else {
		query += " AND published_date IS NULL"
	}

	if docPath != nil {
		query += " AND doc_path = ?"
		args = append(args, JoinDocPath(docPath))
	} else {
		query += " AND doc_path IS NULL"
	}

	var id int64
	err := r.db.QueryRow(query+" LIMIT 1", args...).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return true, nil
}

// InsertRegulation maps a descriptor to a regulation row and returns its id.
func (r *SQLRegulationRepository) InsertRegulation(doc *crawler.Document, categoryID *int64, contentHash string) (int64, error) {
	extraMeta := doc.ExtraMeta
	if extraMeta == nil {
		extraMeta = map[string]string{}
	}
	metaJSON, err := json.Marshal(extraMeta)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize extra meta: %w", err)
	}

	var publishedAt *time.Time
	if doc.PublishedDate != "" {
		if t, err := dateparse.ParseAny(doc.PublishedDate); err == nil {
			publishedAt = &t
		}
	}

	var res sql.Result
	res, err = r.db.Exec(`
		INSERT INTO regulations (
			regulator, source_system, category, title,
			document_url, urdu_url, published_date, published_at, reference_no,
			doc_path, department, year, source_page_url, file_type,
			content_hash, document_html, extra_meta, compliancecategory_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(doc.Regulator), doc.SourceSystem, doc.Category, doc.Title,
		nullableString(doc.DocumentURL), nullableString(doc.UrduURL),
		nullableString(doc.PublishedDate), publishedAt, nullableString(doc.ReferenceNo),
		nullableDocPath(doc.DocPath), nullableString(doc.Department),
		nullableString(doc.Year), nullableString(doc.SourcePageURL),
		nullableString(doc.FileType), nullableString(contentHash),
		nullableString(doc.DocumentHTML), string(metaJSON), categoryID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert regulation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted regulation id: %w", err)
	}

	return id, nil
}

// StoreComplianceAnalysis attaches an analysis result to a regulation row.
func (r *SQLRegulationRepository) StoreComplianceAnalysis(regulationID int64, analysisJSON string, requirementCount int) error {
	_, err := r.db.Exec(`
		INSERT INTO compliance_analysis (regulation_id, analysis, requirement_count)
		VALUES (?, ?, ?)
	`, regulationID, analysisJSON, requirementCount)

	if err != nil {
		return fmt.Errorf("failed to store compliance analysis: %w", err)
	}

	return nil
}

// GetRegulationCount returns the total number of stored regulations.
func (r *SQLRegulationRepository) GetRegulationCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM regulations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get regulation count: %w", err)
	}
	return count, nil
}

// GetRegulationCountByRegulator returns per-regulator row counts.
func (r *SQLRegulationRepository) GetRegulationCountByRegulator() (map[string]int, error) {
	rows, err := r.db.Query("SELECT regulator, COUNT(*) FROM regulations GROUP BY regulator")
	if err != nil {
		return nil, fmt.Errorf("failed to get regulation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var regulator string
		var count int
		if err := rows.Scan(&regulator, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[regulator] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableDocPath(docPath []string) interface{} {
	if docPath == nil {
		return nil
	}
	return JoinDocPath(docPath)
}
