package tasks

import (
	"context"
	"log/slog"

	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
)

// ResolveWebsitesTask finds official websites for organizations that have
// none yet, using a web-search LLM
type ResolveWebsitesTask struct {
	Task
	orgRepo   database.OrganizationRepository
	llm       *clients.LLMClient
	page      *clients.PageClient
	resolver  *resolve.Resolver
	tracker   *runs.Tracker
	batchSize int
}

func NewResolveWebsitesTask(orgRepo database.OrganizationRepository, llm *clients.LLMClient,
	page *clients.PageClient, resolver *resolve.Resolver, tracker *runs.Tracker,
	batchSize int) *ResolveWebsitesTask {
	return &ResolveWebsitesTask{
		Task:      NewTask(TaskTypeResolveWebsites, false),
		orgRepo:   orgRepo,
		llm:       llm,
		page:      page,
		resolver:  resolver,
		tracker:   tracker,
		batchSize: batchSize,
	}
}

func (t *ResolveWebsitesTask) Execute(ctx context.Context) error {
	return t.tracker.Track(t.GetStageName(), database.Params{"batch_size": t.batchSize}, func(runID string) (string, database.Params, error) {
		orgs, err := t.orgRepo.GetMissingWebsite(database.KindVC, t.batchSize)
		if err != nil {
			return "", nil, err
		}

		var stats resolve.Stats
		for _, org := range orgs {
			website, err := t.llm.FindWebsite(ctx, org.Name, sourceURLs(org))
			if err != nil {
				slog.Warn("Website lookup failed", "org", org.Name, "error", err)
				stats.Failed++
				continue
			}
			if website == "" {
				slog.Debug("No website found", "org", org.Name)
				stats.Add(resolve.OutcomeUnchanged)
				continue
			}

			// A reachable site is trusted enough to override a stale value
			validated := t.page.Probe(ctx, siteURL(website))
			if !validated {
				slog.Debug("Website did not respond to probe", "org", org.Name, "website", website)
				stats.Add(resolve.OutcomeUnchanged)
				continue
			}

			_, outcome, err := t.resolver.UpsertOrganization(resolve.OrganizationObservation{
				Name:           org.Name,
				Kind:           org.Kind,
				Website:        website,
				Stage:          t.GetStageName(),
				HighPrecedence: validated,
			})
			if err != nil {
				slog.Warn("Failed to upsert resolved website", "org", org.Name, "error", err)
				stats.Failed++
				continue
			}
			stats.Add(outcome)
		}

		slog.Info("Task completed",
			"type", "ResolveWebsites",
			"duration", t.GetDuration(),
			"total", len(orgs),
			"updated", stats.Updated,
			"failed", stats.Failed)

		return stats.RunStatus(), stats.Summary(), nil
	})
}

// sourceURLs collects provenance URLs to hint the lookup with
func sourceURLs(org database.Organization) []string {
	var urls []string
	for _, src := range org.Sources {
		if src.URL != "" {
			urls = append(urls, src.URL)
		}
	}
	return urls
}
