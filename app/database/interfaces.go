package database

import (
	"time"
)

// CrawlCandidate is an organization eligible for a team-page crawl, together
// with the time it was last crawled (nil when never crawled).
type CrawlCandidate struct {
	Organization  Organization
	LastCrawledAt *time.Time
}

type OrganizationRepository interface {
	GetByKey(uniqKey string) (*Organization, error)
	GetByID(id string) (*Organization, error)
	GetByNameKind(name, kind string) (*Organization, error)
	Insert(org *Organization) (string, error)
	Update(org *Organization) error
	AppendSource(id string, src SourceRecord) (bool, error)
	AppendHistory(id string, event EnrichmentEvent) error

	List(kind string, limit, offset int) ([]Organization, error)
	GetMissingWebsite(kind string, limit int) ([]Organization, error)
	GetCrawlCandidates(kind string, limit int) ([]CrawlCandidate, error)
	Count() (int, error)
}

type DealRepository interface {
	GetByHash(uniqHash string) (*Deal, error)
	Insert(deal *Deal) (string, error)
	Update(deal *Deal) error

	List(limit, offset int) ([]Deal, error)
	Count() (int, error)
}

type PersonRepository interface {
	GetByKey(uniqKey string) (*Person, error)
	GetByID(id string) (*Person, error)
	Insert(person *Person) (string, error)
	Update(person *Person) error
	AppendHistory(id string, event EnrichmentEvent) error

	List(limit, offset int) ([]Person, error)
	GetForSocialEnrichment(limit int) ([]Person, error)
	GetForIntroDrafting(limit int) ([]Person, error)
	Count() (int, error)
}

type RoleRepository interface {
	Find(personID, orgID, title string, isCurrent bool) (*EmploymentRole, error)
	GetCurrent(personID, orgID string) (*EmploymentRole, error)
	Insert(role *EmploymentRole) (string, error)
	Close(roleID string, endDate time.Time) error
	ListByPerson(personID string) ([]EmploymentRole, error)
	ListByOrg(orgID string) ([]EmploymentRole, error)
}

type EvidenceRepository interface {
	Insert(ev *Evidence) (string, error)
	GetByID(id string) (*Evidence, error)
}

type RunRepository interface {
	Insert(run *Run) (string, error)
	Complete(id string, status string, summary Params) error
	Fail(id string, message, trace string) error
	GetByID(id string) (*Run, error)
	List(stageName string, limit int) ([]Run, error)
	GetLastCompleted(stageName string) (*Run, error)
	MarkStuck(olderThan time.Time) (int64, error)
}

type IntroRepository interface {
	Insert(intro *Intro) (string, error)
	GetLatestByPerson(personID string) (*Intro, error)
	List(status string, limit int) ([]Intro, error)
	UpdateStatus(id, status string) error
}
