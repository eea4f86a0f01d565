package database

import (
	"database/sql"
	"fmt"
)

// IntrosRepository handles database operations for intro drafts
type IntrosRepository struct {
	db *DB
}

// NewIntrosRepository creates a new intro repository
func NewIntrosRepository(db *DB) *IntrosRepository {
	return &IntrosRepository{db: db}
}

const introColumns = `id, person_id, subject, message, context_snapshot,
	       status, created_at, updated_at`

func scanIntro(row interface{ Scan(...interface{}) error }) (*Intro, error) {
	var intro Intro
	err := row.Scan(
		&intro.ID, &intro.PersonID, &intro.Subject, &intro.Message,
		&intro.ContextSnapshot, &intro.Status, &intro.CreatedAt,
		&intro.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intro, nil
}

// Insert creates a new intro draft
func (r *IntrosRepository) Insert(intro *Intro) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO intros (person_id, subject, message, context_snapshot, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, intro.PersonID, intro.Subject, intro.Message, intro.ContextSnapshot,
		IntroStatusDraft).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert intro: %w", err)
	}

	return id, nil
}

// GetLatestByPerson returns the most recent intro for a person, or nil if
// none exists
func (r *IntrosRepository) GetLatestByPerson(personID string) (*Intro, error) {
	row := r.db.QueryRow(`
		SELECT `+introColumns+`
		FROM intros
		WHERE person_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, personID)

	intro, err := scanIntro(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get intro by person: %w", err)
	}
	return intro, nil
}

// List returns intros most recent first, optionally filtered by status
func (r *IntrosRepository) List(status string, limit int) ([]Intro, error) {
	rows, err := r.db.Query(`
		SELECT `+introColumns+`
		FROM intros
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list intros: %w", err)
	}
	defer rows.Close()

	var intros []Intro
	for rows.Next() {
		intro, err := scanIntro(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intro row: %w", err)
		}
		intros = append(intros, *intro)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intro rows: %w", err)
	}

	return intros, nil
}

// UpdateStatus moves an intro through its review workflow
func (r *IntrosRepository) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(`
		UPDATE intros SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)

	if err != nil {
		return fmt.Errorf("failed to update intro status: %w", err)
	}
	return nil
}
