package tasks

import (
	"context"
	"log/slog"

	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/dedup"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
)

// EnrichSocialsTask looks up social identifiers for people that have none
// yet: a Twitter handle via a web-search LLM, a Farcaster profile via Neynar,
// and an inferred Telegram handle from the other two.
type EnrichSocialsTask struct {
	Task
	peopleRepo    database.PersonRepository
	orgRepo       database.OrganizationRepository
	evidenceRepo  database.EvidenceRepository
	llm           *clients.LLMClient
	neynar        *clients.NeynarClient
	resolver      *resolve.Resolver
	tracker       *runs.Tracker
	minConfidence float64
	batchSize     int
}

func NewEnrichSocialsTask(peopleRepo database.PersonRepository, orgRepo database.OrganizationRepository,
	evidenceRepo database.EvidenceRepository, llm *clients.LLMClient, neynar *clients.NeynarClient,
	resolver *resolve.Resolver, tracker *runs.Tracker, minConfidence float64, batchSize int) *EnrichSocialsTask {
	return &EnrichSocialsTask{
		Task:          NewTask(TaskTypeEnrichSocials, false),
		peopleRepo:    peopleRepo,
		orgRepo:       orgRepo,
		evidenceRepo:  evidenceRepo,
		llm:           llm,
		neynar:        neynar,
		resolver:      resolver,
		tracker:       tracker,
		minConfidence: minConfidence,
		batchSize:     batchSize,
	}
}

func (t *EnrichSocialsTask) Execute(ctx context.Context) error {
	return t.tracker.Track(t.GetStageName(), database.Params{"batch_size": t.batchSize, "min_confidence": t.minConfidence}, func(runID string) (string, database.Params, error) {
		people, err := t.peopleRepo.GetForSocialEnrichment(t.batchSize)
		if err != nil {
			return "", nil, err
		}

		var stats resolve.Stats
		for _, person := range people {
			if err := t.enrichPerson(ctx, person, &stats); err != nil {
				slog.Warn("Failed to enrich person", "name", person.FullName, "error", err)
				stats.Failed++
			}
		}

		slog.Info("Task completed",
			"type", "EnrichSocials",
			"duration", t.GetDuration(),
			"total", len(people),
			"updated", stats.Updated,
			"unchanged", stats.Unchanged,
			"failed", stats.Failed)

		return stats.RunStatus(), stats.Summary(), nil
	})
}

func (t *EnrichSocialsTask) enrichPerson(ctx context.Context, person database.Person, stats *resolve.Stats) error {
	orgName := t.discoveryOrgName(person)
	emailDomain := dedup.EmailDomain(person.Email)

	socials := database.SocialMap{}

	twitterHandle := ""
	if existing, ok := person.Socials["twitter"]; ok {
		twitterHandle = existing.Handle
	} else {
		guess, err := t.llm.FindTwitterHandle(ctx, person.FullName, orgName)
		if err != nil {
			slog.Debug("Twitter lookup failed", "name", person.FullName, "error", err)
		} else if guess != nil && guess.Confidence >= t.minConfidence {
			twitterHandle = guess.Handle
			socials["twitter"] = database.SocialProfile{
				Handle:     guess.Handle,
				Confidence: guess.Confidence,
				Source:     guess.Source,
			}
		}
	}

	farcasterHandle := ""
	if t.neynar.Enabled() {
		users, err := t.neynar.SearchUsers(ctx, person.FullName, 5)
		if err != nil {
			slog.Debug("Farcaster search failed", "name", person.FullName, "error", err)
		} else {
			best, confidence := t.bestFarcasterMatch(person.FullName, orgName, emailDomain, users)
			if best != nil && confidence >= 0.5 {
				farcasterHandle = best.Username
				socials["farcaster"] = database.SocialProfile{
					Handle:     best.Username,
					FID:        best.FID,
					Confidence: confidence,
					Source:     "neynar",
				}
			}
		}
	}

	telegramHandle, telegramConfidence := inferTelegram(farcasterHandle, twitterHandle)
	if telegramConfidence < t.minConfidence {
		telegramHandle = ""
		telegramConfidence = 0
	}

	obs := resolve.PersonObservation{
		FullName:           person.FullName,
		Email:              person.Email,
		Socials:            socials,
		TelegramHandle:     telegramHandle,
		TelegramConfidence: telegramConfidence,
		Disambiguator:      t.disambiguator(person),
		Stage:              t.GetStageName(),
	}

	updated, outcome, err := t.resolver.UpsertPerson(obs)
	if err != nil {
		return err
	}
	stats.Add(outcome)

	if len(socials) > 0 && updated != nil {
		extracted := database.Params{}
		for network, profile := range socials {
			extracted[network] = profile.Handle
		}
		if _, err := t.evidenceRepo.Insert(&database.Evidence{
			EvidenceType:     "social_lookup",
			ExtractedData:    extracted,
			ExtractionMethod: "llm+neynar",
			PersonID:         updated.ID,
		}); err != nil {
			slog.Warn("Failed to record social lookup evidence", "name", person.FullName, "error", err)
		}
	}
	return nil
}

func (t *EnrichSocialsTask) bestFarcasterMatch(fullName, orgName, emailDomain string, users []clients.FarcasterUser) (*clients.FarcasterUser, float64) {
	var best *clients.FarcasterUser
	highest := 0.0
	for i := range users {
		confidence := farcasterConfidence(fullName, orgName, emailDomain, users[i])
		if confidence > highest {
			highest = confidence
			best = &users[i]
		}
	}
	return best, highest
}

// disambiguator reproduces the scoping signal the person's key was derived
// with at discovery time
func (t *EnrichSocialsTask) disambiguator(person database.Person) string {
	if person.DiscoveredFrom != nil && person.DiscoveredFrom.OrgID != "" {
		return person.DiscoveredFrom.OrgID
	}
	return ""
}

func (t *EnrichSocialsTask) discoveryOrgName(person database.Person) string {
	if person.DiscoveredFrom == nil || person.DiscoveredFrom.OrgID == "" {
		return ""
	}
	org, err := t.orgRepo.GetByID(person.DiscoveredFrom.OrgID)
	if err != nil || org == nil {
		return ""
	}
	return org.Name
}
