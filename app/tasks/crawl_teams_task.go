package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
)

// rawContentLimit caps how much page text one evidence row stores
const rawContentLimit = 50_000

// CrawlTeamsTask fetches organization websites, locates their team pages,
// extracts team members and records them as people with employment roles.
// Each crawl leaves an evidence row so the staleness policy can tell when an
// organization was last visited.
type CrawlTeamsTask struct {
	Task
	orgRepo      database.OrganizationRepository
	evidenceRepo database.EvidenceRepository
	page         *clients.PageClient
	llm          *clients.LLMClient
	resolver     *resolve.Resolver
	tracker      *runs.Tracker
	recrawlTTL   time.Duration
	batchSize    int
}

func NewCrawlTeamsTask(orgRepo database.OrganizationRepository, evidenceRepo database.EvidenceRepository,
	page *clients.PageClient, llm *clients.LLMClient, resolver *resolve.Resolver,
	tracker *runs.Tracker, recrawlTTL time.Duration, batchSize int, force bool) *CrawlTeamsTask {
	return &CrawlTeamsTask{
		Task:         NewTask(TaskTypeCrawlTeams, force),
		orgRepo:      orgRepo,
		evidenceRepo: evidenceRepo,
		page:         page,
		llm:          llm,
		resolver:     resolver,
		tracker:      tracker,
		recrawlTTL:   recrawlTTL,
		batchSize:    batchSize,
	}
}

func (t *CrawlTeamsTask) Execute(ctx context.Context) error {
	return t.tracker.Track(t.GetStageName(), database.Params{"batch_size": t.batchSize, "force": t.Force}, func(runID string) (string, database.Params, error) {
		candidates, err := t.orgRepo.GetCrawlCandidates(database.KindVC, t.batchSize)
		if err != nil {
			return "", nil, err
		}

		var stats resolve.Stats
		crawled := 0
		for _, candidate := range candidates {
			org := candidate.Organization
			if !resolve.IsStale(org.UpdatedAt, candidate.LastCrawledAt, t.recrawlTTL, t.Force) {
				slog.Debug("Organization crawled recently, skipping", "org", org.Name)
				continue
			}
			crawled++

			if err := t.crawlOrganization(ctx, org, &stats); err != nil {
				slog.Warn("Failed to crawl organization", "org", org.Name, "error", err)
				stats.Failed++
			}
		}

		slog.Info("Task completed",
			"type", "CrawlTeams",
			"duration", t.GetDuration(),
			"candidates", len(candidates),
			"crawled", crawled,
			"people_created", stats.Created,
			"failed", stats.Failed)

		return stats.RunStatus(), stats.Summary(), nil
	})
}

// siteURL ensures a fetchable URL; stored websites may or may not carry a
// scheme depending on which stage recorded them
func siteURL(website string) string {
	if strings.HasPrefix(website, "http://") || strings.HasPrefix(website, "https://") {
		return website
	}
	return "https://" + website
}

func (t *CrawlTeamsTask) crawlOrganization(ctx context.Context, org database.Organization, stats *resolve.Stats) error {
	homeURL := siteURL(org.Website)
	home, err := t.page.Fetch(ctx, homeURL)
	if err != nil {
		return fmt.Errorf("failed to fetch homepage: %w", err)
	}

	teamURL := homeURL
	teamPage := home
	if links, err := clients.FindTeamLinks(home, homeURL); err == nil && len(links) > 0 {
		teamURL = links[0]
		if fetched, err := t.page.Fetch(ctx, teamURL); err == nil {
			teamPage = fetched
		} else {
			slog.Debug("Team page fetch failed, falling back to homepage", "org", org.Name, "url", teamURL, "error", err)
			teamURL = homeURL
		}
	}

	text, err := clients.ExtractText(teamPage, teamURL)
	if err != nil {
		return fmt.Errorf("failed to extract page text: %w", err)
	}
	if len(text) > rawContentLimit {
		text = text[:rawContentLimit]
	}

	members, err := t.llm.ExtractTeamMembers(ctx, org.Name, text)
	if err != nil {
		return fmt.Errorf("failed to extract team members: %w", err)
	}

	evidenceID, err := t.evidenceRepo.Insert(&database.Evidence{
		EvidenceType:     "team_page",
		URL:              teamURL,
		RawContent:       text,
		ExtractedData:    database.Params{"member_count": len(members)},
		ExtractionMethod: "readability+llm",
		OrgID:            org.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to store crawl evidence: %w", err)
	}

	for _, member := range members {
		person, outcome, err := t.resolver.UpsertPerson(resolve.PersonObservation{
			FullName: member.FullName,
			Email:    member.Email,
			DiscoveredFrom: &database.DiscoveredFrom{
				Stage: t.GetStageName(),
				OrgID: org.ID,
				URL:   teamURL,
			},
			Disambiguator: org.ID,
			Stage:         t.GetStageName(),
		})
		if err != nil {
			slog.Warn("Failed to upsert person", "name", member.FullName, "org", org.Name, "error", err)
			stats.Failed++
			continue
		}
		stats.Add(outcome)

		if member.Title == "" {
			continue
		}
		if _, _, err := t.resolver.UpsertEmploymentRole(resolve.RoleObservation{
			PersonID:   person.ID,
			OrgID:      org.ID,
			Title:      member.Title,
			Seniority:  member.Seniority,
			EvidenceID: evidenceID,
		}); err != nil {
			slog.Warn("Failed to upsert role", "name", member.FullName, "org", org.Name, "error", err)
		}
	}

	slog.Debug("Organization crawled", "org", org.Name, "url", teamURL, "members", len(members))
	return nil
}
