package resolve

import (
	"time"

	"github.com/sche/vc-agents/app/database"
)

// Outcome describes what an upsert did to the store
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// OrganizationObservation is one stage's view of an organization. Stage names
// the producing pipeline stage for history entries. HighPrecedence marks a
// manual correction that is allowed to overwrite populated scalar fields.
type OrganizationObservation struct {
	Name        string
	Kind        string
	Website     string
	Description string
	Focus       []string
	Location    *database.Location
	Socials     database.SocialMap
	Source      database.SourceRecord

	Stage          string
	HighPrecedence bool
}

// DealObservation is one ingested funding round. OrgID must reference an
// already-resolved organization; OrgName is the raw recipient name used for
// key derivation.
type DealObservation struct {
	OrgID            string
	OrgName          string
	Round            string
	AmountUSD        float64
	AmountOriginal   float64
	CurrencyOriginal string
	AnnouncedOn      *time.Time
	Investors        []string
	Source           database.SourceRecord

	Stage string
}

// PersonObservation is one stage's view of a person. Disambiguator scopes the
// canonical key; when empty it falls back to the email domain. The discovery
// organization must be passed explicitly here, never taken from surrounding
// crawl state.
type PersonObservation struct {
	FullName           string
	Email              string
	Socials            database.SocialMap
	TelegramHandle     string
	TelegramConfidence float64
	DiscoveredFrom     *database.DiscoveredFrom
	Disambiguator      string

	Stage          string
	HighPrecedence bool
}

// RoleObservation is one observed employment relationship
type RoleObservation struct {
	PersonID   string
	OrgID      string
	Title      string
	Seniority  string
	StartDate  *time.Time
	EvidenceID string
}

// Stats aggregates upsert outcomes across one batch
type Stats struct {
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}

// Add records one outcome
func (s *Stats) Add(outcome Outcome) {
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	}
}

// RunStatus maps the batch result onto a terminal run status: failed when
// nothing succeeded, partial on a mix, completed otherwise
func (s *Stats) RunStatus() string {
	succeeded := s.Created + s.Updated + s.Unchanged
	if s.Failed > 0 && succeeded == 0 {
		return database.RunStatusFailed
	}
	if s.Failed > 0 {
		return database.RunStatusPartial
	}
	return database.RunStatusCompleted
}

// Summary renders the batch result as a run output summary
func (s *Stats) Summary() database.Params {
	return database.Params{
		"created":   s.Created,
		"updated":   s.Updated,
		"unchanged": s.Unchanged,
		"failed":    s.Failed,
	}
}
