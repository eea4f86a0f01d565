package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RolesRepository handles database operations for employment roles
type RolesRepository struct {
	db *DB
}

// NewRolesRepository creates a new role repository
func NewRolesRepository(db *DB) *RolesRepository {
	return &RolesRepository{db: db}
}

const roleColumns = `id, person_id, org_id, title, seniority, start_date,
	       end_date, is_current, COALESCE(evidence_id::text, ''),
	       created_at, updated_at`

func scanRole(row interface{ Scan(...interface{}) error }) (*EmploymentRole, error) {
	var role EmploymentRole
	var startDate, endDate sql.NullTime
	err := row.Scan(
		&role.ID, &role.PersonID, &role.OrgID, &role.Title, &role.Seniority,
		&startDate, &endDate, &role.IsCurrent, &role.EvidenceID,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		t := startDate.Time
		role.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		role.EndDate = &t
	}
	return &role, nil
}

// Find returns the role matching the identity tuple, or nil if none exists
func (r *RolesRepository) Find(personID, orgID, title string, isCurrent bool) (*EmploymentRole, error) {
	row := r.db.QueryRow(`
		SELECT `+roleColumns+`
		FROM roles_employment
		WHERE person_id = $1 AND org_id = $2 AND title = $3 AND is_current = $4
	`, personID, orgID, title, isCurrent)

	role, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return role, nil
}

// GetCurrent returns the current role of a person at an organization, or nil
// if none exists
func (r *RolesRepository) GetCurrent(personID, orgID string) (*EmploymentRole, error) {
	row := r.db.QueryRow(`
		SELECT `+roleColumns+`
		FROM roles_employment
		WHERE person_id = $1 AND org_id = $2 AND is_current = true
	`, personID, orgID)

	role, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current role: %w", err)
	}
	return role, nil
}

// Insert creates a new role row. Returns ErrDuplicateKey when the identity
// tuple already exists.
func (r *RolesRepository) Insert(role *EmploymentRole) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO roles_employment (
			person_id, org_id, title, seniority, start_date, end_date,
			is_current, evidence_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, role.PersonID, role.OrgID, role.Title, role.Seniority,
		role.StartDate, role.EndDate, role.IsCurrent,
		nullableID(role.EvidenceID)).Scan(&id)

	if err != nil {
		err = translateInsertError(err)
		if err == ErrDuplicateKey {
			return "", err
		}
		return "", fmt.Errorf("failed to insert role: %w", err)
	}

	return id, nil
}

// Close marks a role as no longer current, recording the end date
func (r *RolesRepository) Close(roleID string, endDate time.Time) error {
	_, err := r.db.Exec(`
		UPDATE roles_employment
		SET is_current = false, end_date = $2, updated_at = NOW()
		WHERE id = $1
	`, roleID, endDate)

	if err != nil {
		return fmt.Errorf("failed to close role: %w", err)
	}
	return nil
}

// ListByPerson returns all roles of a person, current first
func (r *RolesRepository) ListByPerson(personID string) ([]EmploymentRole, error) {
	rows, err := r.db.Query(`
		SELECT `+roleColumns+`
		FROM roles_employment
		WHERE person_id = $1
		ORDER BY is_current DESC, created_at DESC
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles by person: %w", err)
	}
	defer rows.Close()

	return collectRoles(rows)
}

// ListByOrg returns all roles at an organization, current first
func (r *RolesRepository) ListByOrg(orgID string) ([]EmploymentRole, error) {
	rows, err := r.db.Query(`
		SELECT `+roleColumns+`
		FROM roles_employment
		WHERE org_id = $1
		ORDER BY is_current DESC, created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles by org: %w", err)
	}
	defer rows.Close()

	return collectRoles(rows)
}

func collectRoles(rows *sql.Rows) ([]EmploymentRole, error) {
	var roles []EmploymentRole
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
