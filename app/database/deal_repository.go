package database

import (
	"database/sql"
	"fmt"
)

// DealsRepository handles database operations for funding deals
type DealsRepository struct {
	db *DB
}

// NewDealsRepository creates a new deal repository
func NewDealsRepository(db *DB) *DealsRepository {
	return &DealsRepository{db: db}
}

const dealColumns = `id, org_id, round, amount_usd, amount_original,
	       currency_original, announced_on, investors, source, uniq_hash,
	       created_at, updated_at`

func scanDeal(row interface{ Scan(...interface{}) error }) (*Deal, error) {
	var deal Deal
	var announcedOn sql.NullTime
	err := row.Scan(
		&deal.ID, &deal.OrgID, &deal.Round, &deal.AmountUSD,
		&deal.AmountOriginal, &deal.CurrencyOriginal, &announcedOn,
		&deal.Investors, &deal.Source, &deal.UniqHash,
		&deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if announcedOn.Valid {
		t := announcedOn.Time
		deal.AnnouncedOn = &t
	}
	return &deal, nil
}

// GetByHash returns the deal with the given canonical hash, or nil if none
// exists
func (r *DealsRepository) GetByHash(uniqHash string) (*Deal, error) {
	row := r.db.QueryRow(`
		SELECT `+dealColumns+`
		FROM deals
		WHERE uniq_hash = $1
	`, uniqHash)

	deal, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal by hash: %w", err)
	}
	return deal, nil
}

// Insert creates a new deal row. Returns ErrDuplicateKey when the canonical
// hash already exists.
func (r *DealsRepository) Insert(deal *Deal) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO deals (
			org_id, round, amount_usd, amount_original, currency_original,
			announced_on, investors, source, uniq_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, deal.OrgID, deal.Round, deal.AmountUSD, deal.AmountOriginal,
		deal.CurrencyOriginal, deal.AnnouncedOn, deal.Investors,
		deal.Source, deal.UniqHash).Scan(&id)

	if err != nil {
		err = translateInsertError(err)
		if err == ErrDuplicateKey {
			return "", err
		}
		return "", fmt.Errorf("failed to insert deal: %w", err)
	}

	return id, nil
}

// Update persists the mutable fields of a deal
func (r *DealsRepository) Update(deal *Deal) error {
	_, err := r.db.Exec(`
		UPDATE deals
		SET round = $2, amount_usd = $3, amount_original = $4,
		    currency_original = $5, announced_on = $6, investors = $7,
		    updated_at = NOW()
		WHERE id = $1
	`, deal.ID, deal.Round, deal.AmountUSD, deal.AmountOriginal,
		deal.CurrencyOriginal, deal.AnnouncedOn, deal.Investors)

	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	return nil
}

// List returns deals ordered by announcement date, most recent first
func (r *DealsRepository) List(limit, offset int) ([]Deal, error) {
	rows, err := r.db.Query(`
		SELECT `+dealColumns+`
		FROM deals
		ORDER BY COALESCE(announced_on, created_at::date) DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal row: %w", err)
		}
		deals = append(deals, *deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal rows: %w", err)
	}

	return deals, nil
}

// Count returns the total number of deals
func (r *DealsRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM deals").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get deal count: %w", err)
	}
	return count, nil
}
