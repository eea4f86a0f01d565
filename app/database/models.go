package database

import (
	"time"
)

// Organization kinds
const (
	KindVC          = "vc"
	KindStartup     = "startup"
	KindAccelerator = "accelerator"
	KindOther       = "other"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Intro statuses
const (
	IntroStatusDraft    = "draft"
	IntroStatusApproved = "approved"
	IntroStatusSent     = "sent"
)

type Organization struct {
	ID          string // Database UUID
	Name        string
	Kind        string // vc, startup, accelerator, other
	Website     string
	Description string
	Focus       StringList
	Location    *Location
	Sources     SourceList
	Socials     SocialMap
	History     EnrichmentLog
	UniqKey     string // Canonical dedup key, unique
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Deal struct {
	ID               string
	OrgID            string
	Round            string
	AmountUSD        float64
	AmountOriginal   float64
	CurrencyOriginal string
	AnnouncedOn      *time.Time
	Investors        StringList
	Source           SourceRecord
	UniqHash         string // Canonical dedup key, unique
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Person struct {
	ID                 string
	FullName           string
	Email              string
	Socials            SocialMap
	TelegramHandle     string
	TelegramConfidence float64
	DiscoveredFrom     *DiscoveredFrom
	History            EnrichmentLog
	UniqKey            string // Canonical dedup key, unique
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type EmploymentRole struct {
	ID         string
	PersonID   string
	OrgID      string
	Title      string
	Seniority  string
	StartDate  *time.Time
	EndDate    *time.Time
	IsCurrent  bool
	EvidenceID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Evidence is an append-only audit record of one extraction event. Rows are
// never updated after creation.
type Evidence struct {
	ID               string
	EvidenceType     string
	URL              string
	RawContent       string
	ExtractedData    Params
	ExtractionMethod string
	OrgID            string
	PersonID         string
	CreatedAt        time.Time
}

// Run is one tracked invocation of a pipeline stage. Status transitions only
// running -> {completed, partial, failed}; a run is never reopened.
type Run struct {
	ID            string
	StageName     string
	Status        string
	InputParams   Params
	OutputSummary Params
	ErrorMessage  string
	ErrorTrace    string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

// Intro is a drafted outreach message for a person.
type Intro struct {
	ID              string
	PersonID        string
	Subject         string
	Message         string
	ContextSnapshot Params
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
