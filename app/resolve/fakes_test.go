package resolve

import (
	"fmt"
	"time"

	"github.com/sche/vc-agents/app/database"
)

// MockOrgRepository implements an in-memory organization store for testing
type MockOrgRepository struct {
	orgs   map[string]*database.Organization // by id
	nextID int

	// when set, the next Insert loses the creation race: the row is stored
	// under the concurrent writer's identity and ErrDuplicateKey is returned
	raceWinner *database.Organization
}

var _ database.OrganizationRepository = (*MockOrgRepository)(nil)

func NewMockOrgRepository() *MockOrgRepository {
	return &MockOrgRepository{orgs: make(map[string]*database.Organization)}
}

func (m *MockOrgRepository) GetByKey(uniqKey string) (*database.Organization, error) {
	for _, org := range m.orgs {
		if org.UniqKey == uniqKey {
			copied := *org
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockOrgRepository) GetByID(id string) (*database.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, nil
	}
	copied := *org
	return &copied, nil
}

func (m *MockOrgRepository) GetByNameKind(name, kind string) (*database.Organization, error) {
	for _, org := range m.orgs {
		if org.Name == name && org.Kind == kind {
			copied := *org
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockOrgRepository) Insert(org *database.Organization) (string, error) {
	if m.raceWinner != nil {
		winner := m.raceWinner
		m.raceWinner = nil
		m.nextID++
		winner.ID = fmt.Sprintf("org-%d", m.nextID)
		m.orgs[winner.ID] = winner
		return "", database.ErrDuplicateKey
	}
	for _, existing := range m.orgs {
		if existing.UniqKey == org.UniqKey {
			return "", database.ErrDuplicateKey
		}
		if existing.Name == org.Name && existing.Kind == org.Kind {
			return "", database.ErrDuplicateKey
		}
	}
	m.nextID++
	id := fmt.Sprintf("org-%d", m.nextID)
	copied := *org
	copied.ID = id
	m.orgs[id] = &copied
	return id, nil
}

func (m *MockOrgRepository) Update(org *database.Organization) error {
	stored, ok := m.orgs[org.ID]
	if !ok {
		return fmt.Errorf("organization %s not found", org.ID)
	}
	stored.Name = org.Name
	stored.Website = org.Website
	stored.Description = org.Description
	stored.Focus = org.Focus
	stored.Location = org.Location
	stored.Socials = org.Socials
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrgRepository) AppendSource(id string, src database.SourceRecord) (bool, error) {
	stored, ok := m.orgs[id]
	if !ok {
		return false, fmt.Errorf("organization %s not found", id)
	}
	for _, existing := range stored.Sources {
		if existing.SameOrigin(src) {
			return false, nil
		}
	}
	stored.Sources = append(stored.Sources, src)
	return true, nil
}

func (m *MockOrgRepository) AppendHistory(id string, event database.EnrichmentEvent) error {
	stored, ok := m.orgs[id]
	if !ok {
		return fmt.Errorf("organization %s not found", id)
	}
	stored.History = append(stored.History, event)
	return nil
}

func (m *MockOrgRepository) List(kind string, limit, offset int) ([]database.Organization, error) {
	var orgs []database.Organization
	for _, org := range m.orgs {
		if kind == "" || org.Kind == kind {
			orgs = append(orgs, *org)
		}
	}
	return orgs, nil
}

func (m *MockOrgRepository) GetMissingWebsite(kind string, limit int) ([]database.Organization, error) {
	var orgs []database.Organization
	for _, org := range m.orgs {
		if org.Website == "" && (kind == "" || org.Kind == kind) {
			orgs = append(orgs, *org)
		}
	}
	return orgs, nil
}

func (m *MockOrgRepository) GetCrawlCandidates(kind string, limit int) ([]database.CrawlCandidate, error) {
	var candidates []database.CrawlCandidate
	for _, org := range m.orgs {
		if org.Website != "" && (kind == "" || org.Kind == kind) {
			candidates = append(candidates, database.CrawlCandidate{Organization: *org})
		}
	}
	return candidates, nil
}

func (m *MockOrgRepository) Count() (int, error) {
	return len(m.orgs), nil
}

// MockDealRepository implements an in-memory deal store for testing
type MockDealRepository struct {
	deals  map[string]*database.Deal
	nextID int
}

var _ database.DealRepository = (*MockDealRepository)(nil)

func NewMockDealRepository() *MockDealRepository {
	return &MockDealRepository{deals: make(map[string]*database.Deal)}
}

func (m *MockDealRepository) GetByHash(uniqHash string) (*database.Deal, error) {
	for _, deal := range m.deals {
		if deal.UniqHash == uniqHash {
			copied := *deal
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockDealRepository) Insert(deal *database.Deal) (string, error) {
	for _, existing := range m.deals {
		if existing.UniqHash == deal.UniqHash {
			return "", database.ErrDuplicateKey
		}
	}
	m.nextID++
	id := fmt.Sprintf("deal-%d", m.nextID)
	copied := *deal
	copied.ID = id
	m.deals[id] = &copied
	return id, nil
}

func (m *MockDealRepository) Update(deal *database.Deal) error {
	stored, ok := m.deals[deal.ID]
	if !ok {
		return fmt.Errorf("deal %s not found", deal.ID)
	}
	*stored = *deal
	return nil
}

func (m *MockDealRepository) List(limit, offset int) ([]database.Deal, error) {
	var deals []database.Deal
	for _, deal := range m.deals {
		deals = append(deals, *deal)
	}
	return deals, nil
}

func (m *MockDealRepository) Count() (int, error) {
	return len(m.deals), nil
}

// MockPersonRepository implements an in-memory person store for testing
type MockPersonRepository struct {
	people map[string]*database.Person
	nextID int
}

var _ database.PersonRepository = (*MockPersonRepository)(nil)

func NewMockPersonRepository() *MockPersonRepository {
	return &MockPersonRepository{people: make(map[string]*database.Person)}
}

func (m *MockPersonRepository) GetByKey(uniqKey string) (*database.Person, error) {
	for _, person := range m.people {
		if person.UniqKey == uniqKey {
			copied := *person
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockPersonRepository) GetByID(id string) (*database.Person, error) {
	person, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	copied := *person
	return &copied, nil
}

func (m *MockPersonRepository) Insert(person *database.Person) (string, error) {
	for _, existing := range m.people {
		if existing.UniqKey == person.UniqKey {
			return "", database.ErrDuplicateKey
		}
	}
	m.nextID++
	id := fmt.Sprintf("person-%d", m.nextID)
	copied := *person
	copied.ID = id
	m.people[id] = &copied
	return id, nil
}

func (m *MockPersonRepository) Update(person *database.Person) error {
	stored, ok := m.people[person.ID]
	if !ok {
		return fmt.Errorf("person %s not found", person.ID)
	}
	stored.FullName = person.FullName
	stored.Email = person.Email
	stored.Socials = person.Socials
	stored.TelegramHandle = person.TelegramHandle
	stored.TelegramConfidence = person.TelegramConfidence
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MockPersonRepository) AppendHistory(id string, event database.EnrichmentEvent) error {
	stored, ok := m.people[id]
	if !ok {
		return fmt.Errorf("person %s not found", id)
	}
	stored.History = append(stored.History, event)
	return nil
}

func (m *MockPersonRepository) List(limit, offset int) ([]database.Person, error) {
	var people []database.Person
	for _, person := range m.people {
		people = append(people, *person)
	}
	return people, nil
}

func (m *MockPersonRepository) GetForSocialEnrichment(limit int) ([]database.Person, error) {
	var people []database.Person
	for _, person := range m.people {
		if _, ok := person.Socials["farcaster"]; !ok {
			people = append(people, *person)
		}
	}
	return people, nil
}

func (m *MockPersonRepository) GetForIntroDrafting(limit int) ([]database.Person, error) {
	return nil, nil
}

func (m *MockPersonRepository) Count() (int, error) {
	return len(m.people), nil
}

// MockRoleRepository implements an in-memory role store for testing
type MockRoleRepository struct {
	roles  map[string]*database.EmploymentRole
	nextID int
}

var _ database.RoleRepository = (*MockRoleRepository)(nil)

func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{roles: make(map[string]*database.EmploymentRole)}
}

func (m *MockRoleRepository) Find(personID, orgID, title string, isCurrent bool) (*database.EmploymentRole, error) {
	for _, role := range m.roles {
		if role.PersonID == personID && role.OrgID == orgID && role.Title == title && role.IsCurrent == isCurrent {
			copied := *role
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRoleRepository) GetCurrent(personID, orgID string) (*database.EmploymentRole, error) {
	for _, role := range m.roles {
		if role.PersonID == personID && role.OrgID == orgID && role.IsCurrent {
			copied := *role
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRoleRepository) Insert(role *database.EmploymentRole) (string, error) {
	// Mirrors the partial unique index: only current rows collide
	for _, existing := range m.roles {
		if role.IsCurrent && existing.IsCurrent &&
			existing.PersonID == role.PersonID && existing.OrgID == role.OrgID &&
			existing.Title == role.Title {
			return "", database.ErrDuplicateKey
		}
	}
	m.nextID++
	id := fmt.Sprintf("role-%d", m.nextID)
	copied := *role
	copied.ID = id
	m.roles[id] = &copied
	return id, nil
}

func (m *MockRoleRepository) Close(roleID string, endDate time.Time) error {
	stored, ok := m.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s not found", roleID)
	}
	stored.IsCurrent = false
	stored.EndDate = &endDate
	return nil
}

func (m *MockRoleRepository) ListByPerson(personID string) ([]database.EmploymentRole, error) {
	var roles []database.EmploymentRole
	for _, role := range m.roles {
		if role.PersonID == personID {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}

func (m *MockRoleRepository) ListByOrg(orgID string) ([]database.EmploymentRole, error) {
	var roles []database.EmploymentRole
	for _, role := range m.roles {
		if role.OrgID == orgID {
			roles = append(roles, *role)
		}
	}
	return roles, nil
}
