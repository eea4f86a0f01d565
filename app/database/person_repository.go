package database

import (
	"database/sql"
	"fmt"
)

// PeopleRepository handles database operations for people
type PeopleRepository struct {
	db *DB
}

// NewPeopleRepository creates a new person repository
func NewPeopleRepository(db *DB) *PeopleRepository {
	return &PeopleRepository{db: db}
}

const personColumns = `id, full_name, email, socials, telegram_handle,
	       telegram_confidence, discovered_from, history, uniq_key,
	       created_at, updated_at`

func scanPerson(row interface{ Scan(...interface{}) error }) (*Person, error) {
	var person Person
	var discoveredFrom sql.Null[DiscoveredFrom]
	err := row.Scan(
		&person.ID, &person.FullName, &person.Email, &person.Socials,
		&person.TelegramHandle, &person.TelegramConfidence,
		&discoveredFrom, &person.History, &person.UniqKey,
		&person.CreatedAt, &person.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discoveredFrom.Valid {
		person.DiscoveredFrom = &discoveredFrom.V
	}
	return &person, nil
}

// GetByKey returns the person with the given canonical key, or nil if none
// exists
func (r *PeopleRepository) GetByKey(uniqKey string) (*Person, error) {
	row := r.db.QueryRow(`
		SELECT `+personColumns+`
		FROM people
		WHERE uniq_key = $1
	`, uniqKey)

	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by key: %w", err)
	}
	return person, nil
}

// GetByID returns the person with the given id, or nil if none exists
func (r *PeopleRepository) GetByID(id string) (*Person, error) {
	row := r.db.QueryRow(`
		SELECT `+personColumns+`
		FROM people
		WHERE id = $1
	`, id)

	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by id: %w", err)
	}
	return person, nil
}

// Insert creates a new person row. Returns ErrDuplicateKey when the canonical
// key already exists.
func (r *PeopleRepository) Insert(person *Person) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO people (
			full_name, email, socials, telegram_handle,
			telegram_confidence, discovered_from, history, uniq_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, person.FullName, person.Email, person.Socials, person.TelegramHandle,
		person.TelegramConfidence, nullableDiscoveredFrom(person.DiscoveredFrom),
		person.History, person.UniqKey).Scan(&id)

	if err != nil {
		err = translateInsertError(err)
		if err == ErrDuplicateKey {
			return "", err
		}
		return "", fmt.Errorf("failed to insert person: %w", err)
	}

	return id, nil
}

// Update persists the mutable scalar fields of a person. History is
// append-only and written through AppendHistory instead.
func (r *PeopleRepository) Update(person *Person) error {
	_, err := r.db.Exec(`
		UPDATE people
		SET full_name = $2, email = $3, socials = $4, telegram_handle = $5,
		    telegram_confidence = $6, updated_at = NOW()
		WHERE id = $1
	`, person.ID, person.FullName, person.Email, person.Socials,
		person.TelegramHandle, person.TelegramConfidence)

	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	return nil
}

// AppendHistory appends an enrichment event to the person's history
func (r *PeopleRepository) AppendHistory(id string, event EnrichmentEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var history EnrichmentLog
	err = tx.QueryRow(`
		SELECT history FROM people WHERE id = $1 FOR UPDATE
	`, id).Scan(&history)
	if err != nil {
		return fmt.Errorf("failed to lock person history: %w", err)
	}

	history = append(history, event)
	_, err = tx.Exec(`
		UPDATE people SET history = $2 WHERE id = $1
	`, id, history)
	if err != nil {
		return fmt.Errorf("failed to append person history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history append: %w", err)
	}
	return nil
}

// List returns people ordered by name
func (r *PeopleRepository) List(limit, offset int) ([]Person, error) {
	rows, err := r.db.Query(`
		SELECT `+personColumns+`
		FROM people
		ORDER BY full_name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	return collectPeople(rows)
}

// GetForSocialEnrichment returns people that have no Farcaster profile yet,
// least recently updated first
func (r *PeopleRepository) GetForSocialEnrichment(limit int) ([]Person, error) {
	rows, err := r.db.Query(`
		SELECT `+personColumns+`
		FROM people
		WHERE NOT socials ? 'farcaster'
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get people for social enrichment: %w", err)
	}
	defer rows.Close()

	return collectPeople(rows)
}

// GetForIntroDrafting returns people with a reachable contact channel that
// have no intro drafted yet
func (r *PeopleRepository) GetForIntroDrafting(limit int) ([]Person, error) {
	rows, err := r.db.Query(`
		SELECT `+personColumns+`
		FROM people p
		WHERE (p.email != '' OR p.telegram_handle != '' OR p.socials ? 'farcaster')
		  AND NOT EXISTS (SELECT 1 FROM intros i WHERE i.person_id = p.id)
		ORDER BY p.created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get people for intro drafting: %w", err)
	}
	defer rows.Close()

	return collectPeople(rows)
}

// Count returns the total number of people
func (r *PeopleRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM people").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get person count: %w", err)
	}
	return count, nil
}

func collectPeople(rows *sql.Rows) ([]Person, error) {
	var people []Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person row: %w", err)
		}
		people = append(people, *person)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating person rows: %w", err)
	}

	return people, nil
}

func nullableDiscoveredFrom(d *DiscoveredFrom) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
