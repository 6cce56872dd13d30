package database

import (
	"database/sql"
	"fmt"
)

// SQLCategoryRepository handles the compliance folder tree. Nodes are keyed
// by (title, parent_id); a unique index backs get-or-create under concurrent
// runs.
type SQLCategoryRepository struct {
	db *DB
}

var _ CategoryRepository = (*SQLCategoryRepository)(nil)

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *DB) *SQLCategoryRepository {
	return &SQLCategoryRepository{db: db}
}

// GetFolderID looks up a node by title under a parent, nil for root nodes.
func (r *SQLCategoryRepository) GetFolderID(title string, parentID *int64) (*int64, error) {
	var id int64
	var err error

	if parentID == nil {
		err = r.db.QueryRow(`
			SELECT id FROM compliance_categories
			WHERE title = ? AND parent_id IS NULL
		`, title).Scan(&id)
	} else {
		err = r.db.QueryRow(`
			SELECT id FROM compliance_categories
			WHERE title = ? AND parent_id = ?
		`, title, *parentID).Scan(&id)
	}

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder id: %w", err)
	}

	return &id, nil
}

// InsertFolder creates a node under a parent. A concurrent run may have
// created the same node already; the unique index turns that into a no-op
// conflict and the re-select returns the winner's id.
func (r *SQLCategoryRepository) InsertFolder(title string, parentID *int64) (int64, error) {
	_, err := r.db.Exec(`
		INSERT INTO compliance_categories (title, parent_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, title, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert folder: %w", err)
	}

	id, err := r.GetFolderID(title, parentID)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("folder %q missing after insert", title)
	}

	return *id, nil
}
