package database

import (
	"database/sql"
	"fmt"
)

// OrgRepository handles database operations for organizations
type OrgRepository struct {
	db *DB
}

// NewOrgRepository creates a new organization repository
func NewOrgRepository(db *DB) *OrgRepository {
	return &OrgRepository{db: db}
}

const orgColumns = `id, name, kind, website, description, focus, location,
	       sources, socials, history, uniq_key, created_at, updated_at`

func scanOrg(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	var org Organization
	var location sql.Null[Location]
	err := row.Scan(
		&org.ID, &org.Name, &org.Kind, &org.Website, &org.Description,
		&org.Focus, &location, &org.Sources, &org.Socials, &org.History,
		&org.UniqKey, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if location.Valid {
		org.Location = &location.V
	}
	return &org, nil
}

// GetByKey returns the organization with the given canonical key, or nil if
// none exists
func (r *OrgRepository) GetByKey(uniqKey string) (*Organization, error) {
	row := r.db.QueryRow(`
		SELECT `+orgColumns+`
		FROM organizations
		WHERE uniq_key = $1
	`, uniqKey)

	org, err := scanOrg(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by key: %w", err)
	}
	return org, nil
}

// GetByID returns the organization with the given id, or nil if none exists
func (r *OrgRepository) GetByID(id string) (*Organization, error) {
	row := r.db.QueryRow(`
		SELECT `+orgColumns+`
		FROM organizations
		WHERE id = $1
	`, id)

	org, err := scanOrg(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by id: %w", err)
	}
	return org, nil
}

// GetByNameKind returns the organization with the given (name, kind) pair,
// or nil if none exists. Used to locate the merge target when an insert hits
// the (name, kind) constraint under a different canonical key.
func (r *OrgRepository) GetByNameKind(name, kind string) (*Organization, error) {
	row := r.db.QueryRow(`
		SELECT `+orgColumns+`
		FROM organizations
		WHERE name = $1 AND kind = $2
	`, name, kind)

	org, err := scanOrg(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by name and kind: %w", err)
	}
	return org, nil
}

// Insert creates a new organization row. Returns ErrDuplicateKey when the
// canonical key or the (name, kind) pair already exists.
func (r *OrgRepository) Insert(org *Organization) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO organizations (
			name, kind, website, description, focus, location,
			sources, socials, history, uniq_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, org.Name, org.Kind, org.Website, org.Description, org.Focus,
		nullableLocation(org.Location), org.Sources, org.Socials,
		org.History, org.UniqKey).Scan(&id)

	if err != nil {
		err = translateInsertError(err)
		if err == ErrDuplicateKey {
			return "", err
		}
		return "", fmt.Errorf("failed to insert organization: %w", err)
	}

	return id, nil
}

// Update persists the mutable scalar fields of an organization. Provenance
// and history are append-only and written through AppendSource and
// AppendHistory instead.
func (r *OrgRepository) Update(org *Organization) error {
	_, err := r.db.Exec(`
		UPDATE organizations
		SET name = $2, website = $3, description = $4, focus = $5,
		    location = $6, socials = $7, updated_at = NOW()
		WHERE id = $1
	`, org.ID, org.Name, org.Website, org.Description, org.Focus,
		nullableLocation(org.Location), org.Socials)

	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// AppendSource appends a provenance record unless one with the same origin is
// already present. Returns whether the record was appended. The row is locked
// for the duration of the check so concurrent appends cannot race.
func (r *OrgRepository) AppendSource(id string, src SourceRecord) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sources SourceList
	err = tx.QueryRow(`
		SELECT sources FROM organizations WHERE id = $1 FOR UPDATE
	`, id).Scan(&sources)
	if err != nil {
		return false, fmt.Errorf("failed to lock organization sources: %w", err)
	}

	for _, existing := range sources {
		if existing.SameOrigin(src) {
			return false, nil
		}
	}

	sources = append(sources, src)
	_, err = tx.Exec(`
		UPDATE organizations SET sources = $2, updated_at = NOW() WHERE id = $1
	`, id, sources)
	if err != nil {
		return false, fmt.Errorf("failed to append organization source: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit source append: %w", err)
	}
	return true, nil
}

// AppendHistory appends an enrichment event to the organization's history
func (r *OrgRepository) AppendHistory(id string, event EnrichmentEvent) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var history EnrichmentLog
	err = tx.QueryRow(`
		SELECT history FROM organizations WHERE id = $1 FOR UPDATE
	`, id).Scan(&history)
	if err != nil {
		return fmt.Errorf("failed to lock organization history: %w", err)
	}

	history = append(history, event)
	_, err = tx.Exec(`
		UPDATE organizations SET history = $2 WHERE id = $1
	`, id, history)
	if err != nil {
		return fmt.Errorf("failed to append organization history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history append: %w", err)
	}
	return nil
}

// List returns organizations ordered by name, optionally filtered by kind
func (r *OrgRepository) List(kind string, limit, offset int) ([]Organization, error) {
	rows, err := r.db.Query(`
		SELECT `+orgColumns+`
		FROM organizations
		WHERE ($1 = '' OR kind = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3
	`, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, *org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return orgs, nil
}

// GetMissingWebsite returns organizations of the given kind that have no
// website yet, oldest first
func (r *OrgRepository) GetMissingWebsite(kind string, limit int) ([]Organization, error) {
	rows, err := r.db.Query(`
		SELECT `+orgColumns+`
		FROM organizations
		WHERE website = ''
		  AND ($1 = '' OR kind = $1)
		ORDER BY updated_at ASC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizations missing website: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, *org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return orgs, nil
}

// GetCrawlCandidates returns organizations with a website together with the
// time their team page was last crawled, least recently crawled first.
// Never-crawled organizations sort first.
func (r *OrgRepository) GetCrawlCandidates(kind string, limit int) ([]CrawlCandidate, error) {
	rows, err := r.db.Query(`
		SELECT o.id, o.name, o.kind, o.website, o.description, o.focus,
		       o.location, o.sources, o.socials, o.history, o.uniq_key,
		       o.created_at, o.updated_at,
		       MAX(e.created_at) AS last_crawled_at
		FROM organizations o
		LEFT JOIN evidence e
		       ON e.org_id = o.id AND e.evidence_type = 'team_page'
		WHERE o.website != ''
		  AND ($1 = '' OR o.kind = $1)
		GROUP BY o.id
		ORDER BY last_crawled_at ASC NULLS FIRST
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl candidates: %w", err)
	}
	defer rows.Close()

	var candidates []CrawlCandidate
	for rows.Next() {
		var c CrawlCandidate
		var location sql.Null[Location]
		var lastCrawled sql.NullTime
		err := rows.Scan(
			&c.Organization.ID, &c.Organization.Name, &c.Organization.Kind,
			&c.Organization.Website, &c.Organization.Description,
			&c.Organization.Focus, &location, &c.Organization.Sources,
			&c.Organization.Socials, &c.Organization.History,
			&c.Organization.UniqKey, &c.Organization.CreatedAt,
			&c.Organization.UpdatedAt, &lastCrawled,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl candidate row: %w", err)
		}
		if location.Valid {
			c.Organization.Location = &location.V
		}
		if lastCrawled.Valid {
			t := lastCrawled.Time
			c.LastCrawledAt = &t
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crawl candidate rows: %w", err)
	}

	return candidates, nil
}

// Count returns the total number of organizations
func (r *OrgRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM organizations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get organization count: %w", err)
	}
	return count, nil
}

func nullableLocation(loc *Location) interface{} {
	if loc == nil {
		return nil
	}
	return *loc
}
