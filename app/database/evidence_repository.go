package database

import (
	"database/sql"
	"fmt"
)

// EvidenceRepo handles database operations for evidence records
type EvidenceRepo struct {
	db *DB
}

// NewEvidenceRepo creates a new evidence repository
func NewEvidenceRepo(db *DB) *EvidenceRepo {
	return &EvidenceRepo{db: db}
}

// Insert creates a new evidence row. Evidence is append-only; there is no
// update path.
func (r *EvidenceRepo) Insert(ev *Evidence) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO evidence (
			evidence_type, url, raw_content, extracted_data,
			extraction_method, org_id, person_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, ev.EvidenceType, ev.URL, ev.RawContent, ev.ExtractedData,
		ev.ExtractionMethod, nullableID(ev.OrgID),
		nullableID(ev.PersonID)).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert evidence: %w", err)
	}

	return id, nil
}

// GetByID returns the evidence record with the given id, or nil if none
// exists
func (r *EvidenceRepo) GetByID(id string) (*Evidence, error) {
	var ev Evidence
	err := r.db.QueryRow(`
		SELECT id, evidence_type, COALESCE(url, ''), COALESCE(raw_content, ''),
		       extracted_data, COALESCE(extraction_method, ''),
		       COALESCE(org_id::text, ''), COALESCE(person_id::text, ''),
		       created_at
		FROM evidence
		WHERE id = $1
	`, id).Scan(
		&ev.ID, &ev.EvidenceType, &ev.URL, &ev.RawContent,
		&ev.ExtractedData, &ev.ExtractionMethod, &ev.OrgID, &ev.PersonID,
		&ev.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence by id: %w", err)
	}
	return &ev, nil
}
