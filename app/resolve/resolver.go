package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/dedup"
)

// Resolver is the central upsert decision algorithm. Every pipeline stage
// funnels its observations through here; the policy is identical regardless
// of which stage calls it: derive the canonical key, fill gaps, append
// provenance, preserve conflicting values in history instead of overwriting,
// and write nothing when the merge changes nothing.
type Resolver struct {
	orgs   database.OrganizationRepository
	deals  database.DealRepository
	people database.PersonRepository
	roles  database.RoleRepository
}

// NewResolver creates a new upsert resolver
func NewResolver(orgs database.OrganizationRepository, deals database.DealRepository,
	people database.PersonRepository, roles database.RoleRepository) *Resolver {
	return &Resolver{orgs: orgs, deals: deals, people: people, roles: roles}
}

// UpsertOrganization resolves an organization observation against the store
func (r *Resolver) UpsertOrganization(obs OrganizationObservation) (*database.Organization, Outcome, error) {
	if err := requireNonEmpty("organization name", obs.Name); err != nil {
		return nil, "", err
	}
	kind := obs.Kind
	if kind == "" {
		kind = database.KindOther
	}

	key := dedup.OrganizationKey(obs.Name, obs.Website, kind)

	existing, err := r.orgs.GetByKey(key)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		org := &database.Organization{
			Name:        obs.Name,
			Kind:        kind,
			Website:     dedup.NormalizeURL(obs.Website),
			Description: obs.Description,
			Focus:       database.StringList(obs.Focus),
			Location:    obs.Location,
			Socials:     cloneSocials(obs.Socials),
			UniqKey:     key,
		}
		if !obs.Source.ImportedAt.IsZero() || obs.Source.Type != "" {
			org.Sources = database.SourceList{obs.Source}
		}
		org.History = database.EnrichmentLog{creationEvent(obs.Stage)}

		id, err := r.orgs.Insert(org)
		if err == nil {
			org.ID = id
			slog.Debug("Organization created", "name", obs.Name, "kind", kind)
			return org, OutcomeCreated, nil
		}
		if !errors.Is(err, database.ErrDuplicateKey) {
			return nil, "", err
		}

		// A concurrent writer won the race, or the (name, kind) pair already
		// exists under a different canonical key. Either way the duplicate is
		// the merge target.
		existing, err = r.orgs.GetByKey(key)
		if err != nil {
			return nil, "", err
		}
		if existing == nil {
			existing, err = r.orgs.GetByNameKind(obs.Name, kind)
			if err != nil {
				return nil, "", err
			}
		}
		if existing == nil {
			return nil, "", fmt.Errorf("organization %q vanished after duplicate insert", obs.Name)
		}
	}

	return r.mergeOrganization(existing, obs)
}

func (r *Resolver) mergeOrganization(org *database.Organization, obs OrganizationObservation) (*database.Organization, Outcome, error) {
	var changed, conflicts []string

	mergeScalar(&org.Website, dedup.NormalizeURL(obs.Website), "website", obs.HighPrecedence, &changed, &conflicts)
	mergeScalar(&org.Description, obs.Description, "description", obs.HighPrecedence, &changed, &conflicts)

	if len(org.Focus) == 0 && len(obs.Focus) > 0 {
		org.Focus = database.StringList(obs.Focus)
		changed = append(changed, "focus")
	}
	if org.Location == nil && obs.Location != nil {
		org.Location = obs.Location
		changed = append(changed, "location")
	}
	if mergeSocials(&org.Socials, obs.Socials) {
		changed = append(changed, "socials")
	}

	if len(changed) > 0 {
		if err := r.orgs.Update(org); err != nil {
			return nil, "", err
		}
	}

	appended := false
	if obs.Source.Type != "" {
		var err error
		appended, err = r.orgs.AppendSource(org.ID, obs.Source)
		if err != nil {
			return nil, "", err
		}
	}

	if len(changed) > 0 || len(conflicts) > 0 {
		event := database.EnrichmentEvent{
			Timestamp: time.Now().UTC(),
			Stage:     obs.Stage,
			Fields:    changed,
			Conflict:  strings.Join(conflicts, "; "),
		}
		if err := r.orgs.AppendHistory(org.ID, event); err != nil {
			return nil, "", err
		}
		org.History = append(org.History, event)
	}

	if len(conflicts) > 0 {
		slog.Warn("Organization field conflict preserved", "name", org.Name, "conflicts", strings.Join(conflicts, "; "))
	}

	if len(changed) == 0 && !appended {
		return org, OutcomeUnchanged, nil
	}

	slog.Debug("Organization updated", "name", org.Name, "fields", strings.Join(changed, ","))
	return org, OutcomeUpdated, nil
}

// UpsertDeal resolves a deal observation against the store. The owning
// organization must already be resolved; deals are effectively immutable
// after creation.
func (r *Resolver) UpsertDeal(obs DealObservation) (*database.Deal, Outcome, error) {
	if err := requireNonEmpty("deal organization name", obs.OrgName); err != nil {
		return nil, "", err
	}
	if err := requireNonEmpty("deal organization id", obs.OrgID); err != nil {
		return nil, "", err
	}

	var announcedOn time.Time
	if obs.AnnouncedOn != nil {
		announcedOn = *obs.AnnouncedOn
	}
	hash := dedup.DealKey(obs.OrgName, announcedOn, obs.Round, obs.AmountUSD)

	existing, err := r.deals.GetByHash(hash)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		deal := &database.Deal{
			OrgID:            obs.OrgID,
			Round:            obs.Round,
			AmountUSD:        obs.AmountUSD,
			AmountOriginal:   obs.AmountOriginal,
			CurrencyOriginal: obs.CurrencyOriginal,
			AnnouncedOn:      obs.AnnouncedOn,
			Investors:        database.StringList(obs.Investors),
			Source:           obs.Source,
			UniqHash:         hash,
		}

		id, err := r.deals.Insert(deal)
		if err == nil {
			deal.ID = id
			slog.Debug("Deal created", "org", obs.OrgName, "round", obs.Round)
			return deal, OutcomeCreated, nil
		}
		if !errors.Is(err, database.ErrDuplicateKey) {
			return nil, "", err
		}

		existing, err = r.deals.GetByHash(hash)
		if err != nil {
			return nil, "", err
		}
		if existing == nil {
			return nil, "", fmt.Errorf("deal %s vanished after duplicate insert", hash)
		}
	}

	changed := false
	if len(existing.Investors) == 0 && len(obs.Investors) > 0 {
		existing.Investors = database.StringList(obs.Investors)
		changed = true
	}
	if existing.CurrencyOriginal == "" && obs.CurrencyOriginal != "" {
		existing.CurrencyOriginal = obs.CurrencyOriginal
		existing.AmountOriginal = obs.AmountOriginal
		changed = true
	}

	if !changed {
		return existing, OutcomeUnchanged, nil
	}

	if err := r.deals.Update(existing); err != nil {
		return nil, "", err
	}
	return existing, OutcomeUpdated, nil
}

// UpsertPerson resolves a person observation against the store
func (r *Resolver) UpsertPerson(obs PersonObservation) (*database.Person, Outcome, error) {
	if err := requireNonEmpty("person name", obs.FullName); err != nil {
		return nil, "", err
	}

	disambiguator := obs.Disambiguator
	if disambiguator == "" {
		disambiguator = dedup.EmailDomain(obs.Email)
	}
	key := dedup.PersonKey(obs.FullName, disambiguator)

	existing, err := r.people.GetByKey(key)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		person := &database.Person{
			FullName:           obs.FullName,
			Email:              obs.Email,
			Socials:            cloneSocials(obs.Socials),
			TelegramHandle:     obs.TelegramHandle,
			TelegramConfidence: obs.TelegramConfidence,
			DiscoveredFrom:     obs.DiscoveredFrom,
			History:            database.EnrichmentLog{creationEvent(obs.Stage)},
			UniqKey:            key,
		}

		id, err := r.people.Insert(person)
		if err == nil {
			person.ID = id
			slog.Debug("Person created", "name", obs.FullName)
			return person, OutcomeCreated, nil
		}
		if !errors.Is(err, database.ErrDuplicateKey) {
			return nil, "", err
		}

		existing, err = r.people.GetByKey(key)
		if err != nil {
			return nil, "", err
		}
		if existing == nil {
			return nil, "", fmt.Errorf("person %q vanished after duplicate insert", obs.FullName)
		}
	}

	return r.mergePerson(existing, obs)
}

func (r *Resolver) mergePerson(person *database.Person, obs PersonObservation) (*database.Person, Outcome, error) {
	var changed, conflicts []string

	mergeScalar(&person.Email, obs.Email, "email", obs.HighPrecedence, &changed, &conflicts)

	if obs.TelegramHandle != "" {
		if person.TelegramHandle == "" {
			person.TelegramHandle = obs.TelegramHandle
			person.TelegramConfidence = obs.TelegramConfidence
			changed = append(changed, "telegram_handle")
		} else if person.TelegramHandle != obs.TelegramHandle {
			if obs.HighPrecedence || obs.TelegramConfidence > person.TelegramConfidence {
				person.TelegramHandle = obs.TelegramHandle
				person.TelegramConfidence = obs.TelegramConfidence
				changed = append(changed, "telegram_handle")
			} else {
				conflicts = append(conflicts, conflictNote("telegram_handle", person.TelegramHandle, obs.TelegramHandle))
			}
		}
	}

	if mergeSocials(&person.Socials, obs.Socials) {
		changed = append(changed, "socials")
	}

	if len(changed) == 0 && len(conflicts) == 0 {
		return person, OutcomeUnchanged, nil
	}

	if len(changed) > 0 {
		if err := r.people.Update(person); err != nil {
			return nil, "", err
		}
	}

	event := database.EnrichmentEvent{
		Timestamp: time.Now().UTC(),
		Stage:     obs.Stage,
		Fields:    changed,
		Conflict:  strings.Join(conflicts, "; "),
	}
	if err := r.people.AppendHistory(person.ID, event); err != nil {
		return nil, "", err
	}
	person.History = append(person.History, event)

	if len(conflicts) > 0 {
		slog.Warn("Person field conflict preserved", "name", person.FullName, "conflicts", strings.Join(conflicts, "; "))
	}
	if len(changed) == 0 {
		return person, OutcomeUnchanged, nil
	}

	slog.Debug("Person updated", "name", person.FullName, "fields", strings.Join(changed, ","))
	return person, OutcomeUpdated, nil
}

// UpsertEmploymentRole resolves an observed employment relationship. A person
// holds at most one current role per organization: when the observed title
// differs from the current one, the old role is closed before the new one is
// opened.
func (r *Resolver) UpsertEmploymentRole(obs RoleObservation) (*database.EmploymentRole, Outcome, error) {
	if err := requireNonEmpty("role person id", obs.PersonID); err != nil {
		return nil, "", err
	}
	if err := requireNonEmpty("role organization id", obs.OrgID); err != nil {
		return nil, "", err
	}
	if err := requireNonEmpty("role title", obs.Title); err != nil {
		return nil, "", err
	}

	current, err := r.roles.GetCurrent(obs.PersonID, obs.OrgID)
	if err != nil {
		return nil, "", err
	}

	if current != nil && current.Title == obs.Title {
		return current, OutcomeUnchanged, nil
	}

	if current != nil {
		if err := r.roles.Close(current.ID, time.Now().UTC()); err != nil {
			return nil, "", err
		}
		slog.Debug("Role closed", "person", obs.PersonID, "old_title", current.Title, "new_title", obs.Title)
	}

	role := &database.EmploymentRole{
		PersonID:   obs.PersonID,
		OrgID:      obs.OrgID,
		Title:      obs.Title,
		Seniority:  obs.Seniority,
		StartDate:  obs.StartDate,
		IsCurrent:  true,
		EvidenceID: obs.EvidenceID,
	}

	id, err := r.roles.Insert(role)
	if err == nil {
		role.ID = id
		if current != nil {
			return role, OutcomeUpdated, nil
		}
		return role, OutcomeCreated, nil
	}
	if !errors.Is(err, database.ErrDuplicateKey) {
		return nil, "", err
	}

	existing, err := r.roles.Find(obs.PersonID, obs.OrgID, obs.Title, true)
	if err != nil {
		return nil, "", err
	}
	if existing == nil {
		return nil, "", fmt.Errorf("role %s@%s vanished after duplicate insert", obs.PersonID, obs.OrgID)
	}
	return existing, OutcomeUnchanged, nil
}

// mergeScalar applies the fill-the-gap policy to one scalar field: set when
// empty, overwrite only on high precedence, otherwise record the disagreement
func mergeScalar(existing *string, incoming, field string, highPrecedence bool, changed, conflicts *[]string) {
	if incoming == "" || incoming == *existing {
		return
	}
	if *existing == "" || highPrecedence {
		*existing = incoming
		*changed = append(*changed, field)
		return
	}
	*conflicts = append(*conflicts, conflictNote(field, *existing, incoming))
}

// mergeSocials fills missing platforms; an already-populated platform entry
// is only replaced by a strictly more confident one
func mergeSocials(existing *database.SocialMap, incoming database.SocialMap) bool {
	if len(incoming) == 0 {
		return false
	}
	if *existing == nil {
		*existing = database.SocialMap{}
	}
	changed := false
	for platform, profile := range incoming {
		prev, ok := (*existing)[platform]
		if !ok {
			(*existing)[platform] = profile
			changed = true
			continue
		}
		if profile.Handle != prev.Handle && profile.Confidence > prev.Confidence {
			(*existing)[platform] = profile
			changed = true
		}
	}
	return changed
}

func cloneSocials(socials database.SocialMap) database.SocialMap {
	if socials == nil {
		return database.SocialMap{}
	}
	cloned := make(database.SocialMap, len(socials))
	for k, v := range socials {
		cloned[k] = v
	}
	return cloned
}

func creationEvent(stage string) database.EnrichmentEvent {
	return database.EnrichmentEvent{
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Fields:    []string{"created"},
	}
}

func conflictNote(field, kept, observed string) string {
	return fmt.Sprintf("%s: kept %q, observed %q", field, kept, observed)
}
