package resolve

import (
	"errors"
	"testing"
	"time"

	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/dedup"
)

func newTestResolver() (*Resolver, *MockOrgRepository, *MockDealRepository, *MockPersonRepository, *MockRoleRepository) {
	orgs := NewMockOrgRepository()
	deals := NewMockDealRepository()
	people := NewMockPersonRepository()
	roles := NewMockRoleRepository()
	return NewResolver(orgs, deals, people, roles), orgs, deals, people, roles
}

func TestUpsertOrganizationCreate(t *testing.T) {
	resolver, orgs, _, _, _ := newTestResolver()

	obs := OrganizationObservation{
		Name:    "Sequoia Capital",
		Kind:    database.KindVC,
		Website: "https://sequoiacap.com/",
		Source:  database.SourceRecord{Type: "defillama", URL: "https://api.llama.fi/raises", ImportedAt: time.Now()},
		Stage:   "ingest_deals",
	}

	org, outcome, err := resolver.UpsertOrganization(obs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got %s", outcome)
	}
	if org.UniqKey == "" {
		t.Error("Expected canonical key to be set")
	}
	if org.Website != "sequoiacap.com" {
		t.Errorf("Expected normalized website, got %q", org.Website)
	}
	if len(org.Sources) != 1 {
		t.Errorf("Expected 1 source record, got %d", len(org.Sources))
	}

	count, _ := orgs.Count()
	if count != 1 {
		t.Errorf("Expected 1 organization row, got %d", count)
	}
}

func TestUpsertOrganizationIdempotent(t *testing.T) {
	resolver, orgs, _, _, _ := newTestResolver()

	obs := OrganizationObservation{
		Name:    "Sequoia Capital",
		Kind:    database.KindVC,
		Website: "https://sequoiacap.com/",
		Source:  database.SourceRecord{Type: "defillama", URL: "https://api.llama.fi/raises", ImportedAt: time.Now()},
		Stage:   "ingest_deals",
	}

	_, first, err := resolver.UpsertOrganization(obs)
	if err != nil {
		t.Fatalf("Unexpected error on first upsert: %v", err)
	}
	org, second, err := resolver.UpsertOrganization(obs)
	if err != nil {
		t.Fatalf("Unexpected error on second upsert: %v", err)
	}

	if first != OutcomeCreated {
		t.Errorf("Expected first outcome created, got %s", first)
	}
	if second != OutcomeUnchanged {
		t.Errorf("Expected second outcome unchanged, got %s", second)
	}
	if len(org.Sources) != 1 {
		t.Errorf("Expected same-origin source not re-appended, got %d sources", len(org.Sources))
	}

	count, _ := orgs.Count()
	if count != 1 {
		t.Errorf("Expected 1 organization row after repeated upsert, got %d", count)
	}
}

func TestUpsertOrganizationFillGap(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver()

	base := OrganizationObservation{
		Name:    "Paradigm",
		Kind:    database.KindStartup,
		Website: "paradigm.xyz",
		Stage:   "ingest_deals",
	}
	if _, _, err := resolver.UpsertOrganization(base); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	enriched := base
	enriched.Description = "Crypto investment firm"
	enriched.Stage = "resolve_websites"

	org, outcome, err := resolver.UpsertOrganization(enriched)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("Expected outcome updated, got %s", outcome)
	}
	if org.Description != "Crypto investment firm" {
		t.Errorf("Expected description to be filled, got %q", org.Description)
	}
}

func TestUpsertOrganizationConflictPreserved(t *testing.T) {
	resolver, orgs, _, _, _ := newTestResolver()

	base := OrganizationObservation{
		Name:        "Paradigm",
		Kind:        database.KindStartup,
		Website:     "paradigm.xyz",
		Description: "Crypto investment firm",
		Stage:       "ingest_deals",
	}
	if _, _, err := resolver.UpsertOrganization(base); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	conflicting := base
	conflicting.Description = "A research-driven technology company"
	conflicting.Stage = "crawl_teams"

	org, _, err := resolver.UpsertOrganization(conflicting)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if org.Description != "Crypto investment firm" {
		t.Errorf("Expected existing description kept, got %q", org.Description)
	}

	stored, _ := orgs.GetByID(org.ID)
	last := stored.History[len(stored.History)-1]
	if last.Conflict == "" {
		t.Error("Expected conflict to be recorded in history")
	}
	if last.Stage != "crawl_teams" {
		t.Errorf("Expected conflict attributed to crawl_teams, got %q", last.Stage)
	}
}

func TestUpsertOrganizationHighPrecedenceOverwrites(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver()

	base := OrganizationObservation{
		Name:        "Paradigm",
		Kind:        database.KindStartup,
		Website:     "paradigm.xyz",
		Description: "Crypto investment firm",
		Stage:       "ingest_deals",
	}
	if _, _, err := resolver.UpsertOrganization(base); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	correction := base
	correction.Description = "Corrected by operator"
	correction.HighPrecedence = true

	org, outcome, err := resolver.UpsertOrganization(correction)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("Expected outcome updated, got %s", outcome)
	}
	if org.Description != "Corrected by operator" {
		t.Errorf("Expected high-precedence overwrite, got %q", org.Description)
	}
}

func TestUpsertOrganizationInsertRace(t *testing.T) {
	resolver, orgs, _, _, _ := newTestResolver()

	obs := OrganizationObservation{
		Name:    "Sequoia Capital",
		Kind:    database.KindVC,
		Website: "sequoiacap.com",
		Stage:   "ingest_deals",
	}
	key := dedup.OrganizationKey(obs.Name, obs.Website, obs.Kind)

	// simulate a concurrent writer winning the insert race
	orgs.raceWinner = &database.Organization{
		Name:    obs.Name,
		Kind:    obs.Kind,
		Website: "sequoiacap.com",
		UniqKey: key,
	}

	org, outcome, err := resolver.UpsertOrganization(obs)
	if err != nil {
		t.Fatalf("Expected race to be recovered, got error: %v", err)
	}
	if outcome != OutcomeUnchanged {
		t.Errorf("Expected outcome unchanged after losing race, got %s", outcome)
	}
	if org == nil || org.UniqKey != key {
		t.Fatal("Expected reference to the winner's row")
	}

	count, _ := orgs.Count()
	if count != 1 {
		t.Errorf("Expected exactly 1 row after race, got %d", count)
	}
}

func TestUpsertOrganizationEmptyName(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver()

	_, _, err := resolver.UpsertOrganization(OrganizationObservation{Kind: database.KindVC})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestUpsertDealIdempotent(t *testing.T) {
	resolver, _, deals, _, _ := newTestResolver()

	announced := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	obs := DealObservation{
		OrgID:       "org-1",
		OrgName:     "Paradigm",
		Round:       "Seed",
		AmountUSD:   5000000,
		AnnouncedOn: &announced,
		Investors:   []string{"Example VC"},
		Source:      database.SourceRecord{Type: "defillama", ImportedAt: time.Now()},
		Stage:       "ingest_deals",
	}

	_, first, err := resolver.UpsertDeal(obs)
	if err != nil {
		t.Fatalf("Unexpected error on first upsert: %v", err)
	}
	_, second, err := resolver.UpsertDeal(obs)
	if err != nil {
		t.Fatalf("Unexpected error on second upsert: %v", err)
	}

	if first != OutcomeCreated {
		t.Errorf("Expected first outcome created, got %s", first)
	}
	if second != OutcomeUnchanged {
		t.Errorf("Expected second outcome unchanged, got %s", second)
	}

	count, _ := deals.Count()
	if count != 1 {
		t.Errorf("Expected 1 deal row, got %d", count)
	}
}

func TestUpsertDealRequiresOrg(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver()

	_, _, err := resolver.UpsertDeal(DealObservation{OrgName: "Paradigm"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError for missing org id, got %v", err)
	}
}

func TestUpsertPersonNamesakes(t *testing.T) {
	resolver, _, _, people, _ := newTestResolver()

	first := PersonObservation{
		FullName:      "Alex Chen",
		Disambiguator: "org-1",
		Stage:         "crawl_teams",
	}
	second := PersonObservation{
		FullName:      "Alex Chen",
		Disambiguator: "org-2",
		Stage:         "crawl_teams",
	}

	_, firstOutcome, err := resolver.UpsertPerson(first)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, secondOutcome, err := resolver.UpsertPerson(second)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if firstOutcome != OutcomeCreated || secondOutcome != OutcomeCreated {
		t.Errorf("Expected two distinct people, got outcomes %s and %s", firstOutcome, secondOutcome)
	}

	count, _ := people.Count()
	if count != 2 {
		t.Errorf("Expected namesakes at different orgs to be 2 rows, got %d", count)
	}
}

func TestUpsertPersonHistoryAppendOnly(t *testing.T) {
	resolver, _, _, people, _ := newTestResolver()

	base := PersonObservation{
		FullName:      "Alex Chen",
		Disambiguator: "org-1",
		Stage:         "crawl_teams",
	}
	created, _, err := resolver.UpsertPerson(base)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	initialLen := len(created.History)

	enriched := base
	enriched.Stage = "enrich_socials"
	enriched.Socials = database.SocialMap{
		"farcaster": {Handle: "alexchen", Confidence: 0.9, Source: "neynar"},
	}

	if _, _, err := resolver.UpsertPerson(enriched); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	more := enriched
	more.Email = "alex@org-one.com"
	if _, _, err := resolver.UpsertPerson(more); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	stored, _ := people.GetByID(created.ID)
	if len(stored.History) < initialLen+2 {
		t.Errorf("Expected history to grow with each enrichment, got %d entries", len(stored.History))
	}
	if stored.History[0].Fields[0] != "created" {
		t.Error("Expected creation event to remain first in history")
	}
}

func TestUpsertPersonTelegramConfidence(t *testing.T) {
	resolver, _, _, _, _ := newTestResolver()

	base := PersonObservation{
		FullName:           "Alex Chen",
		Disambiguator:      "org-1",
		TelegramHandle:     "alex_c",
		TelegramConfidence: 0.5,
		Stage:              "enrich_socials",
	}
	if _, _, err := resolver.UpsertPerson(base); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	better := base
	better.TelegramHandle = "alexchen"
	better.TelegramConfidence = 0.6

	person, outcome, err := resolver.UpsertPerson(better)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("Expected higher-confidence handle to win, got %s", outcome)
	}
	if person.TelegramHandle != "alexchen" {
		t.Errorf("Expected handle alexchen, got %q", person.TelegramHandle)
	}

	worse := base
	worse.TelegramHandle = "a_chen"
	worse.TelegramConfidence = 0.3

	person, _, err = resolver.UpsertPerson(worse)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if person.TelegramHandle != "alexchen" {
		t.Errorf("Expected lower-confidence handle rejected, kept %q", person.TelegramHandle)
	}
}

func TestUpsertRoleTransition(t *testing.T) {
	resolver, _, _, _, roles := newTestResolver()

	first := RoleObservation{
		PersonID: "person-1",
		OrgID:    "org-1",
		Title:    "Associate",
	}
	created, outcome, err := resolver.UpsertEmploymentRole(first)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got %s", outcome)
	}

	promoted := RoleObservation{
		PersonID: "person-1",
		OrgID:    "org-1",
		Title:    "Partner",
	}
	newRole, outcome, err := resolver.UpsertEmploymentRole(promoted)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("Expected outcome updated for role transition, got %s", outcome)
	}
	if !newRole.IsCurrent || newRole.Title != "Partner" {
		t.Errorf("Expected current Partner role, got current=%v title=%q", newRole.IsCurrent, newRole.Title)
	}

	all, _ := roles.ListByPerson("person-1")
	if len(all) != 2 {
		t.Fatalf("Expected 2 role rows after transition, got %d", len(all))
	}
	for _, role := range all {
		if role.ID == created.ID {
			if role.IsCurrent {
				t.Error("Expected old Associate role to be closed")
			}
			if role.EndDate == nil {
				t.Error("Expected old role to have an end date")
			}
		}
	}

	current, _ := roles.GetCurrent("person-1", "org-1")
	if current == nil || current.Title != "Partner" {
		t.Error("Expected exactly one current role with title Partner")
	}
}

func TestUpsertRoleTitleCycle(t *testing.T) {
	resolver, _, _, _, roles := newTestResolver()

	// A person can return to a title they previously held; closed rows are
	// history and must not block the transition.
	titles := []string{"Associate", "Partner", "Associate", "Partner"}
	for i, title := range titles {
		_, outcome, err := resolver.UpsertEmploymentRole(RoleObservation{
			PersonID: "person-1",
			OrgID:    "org-1",
			Title:    title,
		})
		if err != nil {
			t.Fatalf("Unexpected error on transition %d to %s: %v", i, title, err)
		}
		expected := OutcomeUpdated
		if i == 0 {
			expected = OutcomeCreated
		}
		if outcome != expected {
			t.Errorf("Expected outcome %s on transition %d, got %s", expected, i, outcome)
		}
	}

	all, _ := roles.ListByPerson("person-1")
	if len(all) != 4 {
		t.Fatalf("Expected 4 role rows after title cycle, got %d", len(all))
	}
	currentCount := 0
	for _, role := range all {
		if role.IsCurrent {
			currentCount++
			if role.Title != "Partner" {
				t.Errorf("Expected current role Partner, got %q", role.Title)
			}
		} else if role.EndDate == nil {
			t.Error("Expected closed role to have an end date")
		}
	}
	if currentCount != 1 {
		t.Errorf("Expected exactly 1 current role, got %d", currentCount)
	}
}

func TestUpsertRoleSameTitleUnchanged(t *testing.T) {
	resolver, _, _, _, roles := newTestResolver()

	obs := RoleObservation{
		PersonID: "person-1",
		OrgID:    "org-1",
		Title:    "Partner",
	}
	if _, _, err := resolver.UpsertEmploymentRole(obs); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, outcome, err := resolver.UpsertEmploymentRole(obs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeUnchanged {
		t.Errorf("Expected outcome unchanged for repeated role, got %s", outcome)
	}

	all, _ := roles.ListByPerson("person-1")
	if len(all) != 1 {
		t.Errorf("Expected 1 role row, got %d", len(all))
	}
}

func TestStatsRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		stats    Stats
		expected string
	}{
		{"all succeeded", Stats{Created: 2, Updated: 1}, database.RunStatusCompleted},
		{"mixed", Stats{Created: 2, Failed: 1}, database.RunStatusPartial},
		{"all failed", Stats{Failed: 3}, database.RunStatusFailed},
		{"empty batch", Stats{}, database.RunStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.RunStatus(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
