package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
	"github.com/sche/vc-agents/app/seeds"
)

// IngestDealsTask pulls recent funding rounds from DefiLlama, resolves the
// recipient and investor organizations, and records each deal exactly once.
// Configured news feeds are fetched alongside and their items stored as
// evidence for later review.
type IngestDealsTask struct {
	Task
	defillama    *clients.DefiLlamaClient
	news         *clients.NewsFeedClient
	newsFeeds    []seeds.SeedFeed
	resolver     *resolve.Resolver
	evidenceRepo database.EvidenceRepository
	tracker      *runs.Tracker
	lookbackDays int
}

func NewIngestDealsTask(defillama *clients.DefiLlamaClient, news *clients.NewsFeedClient,
	newsFeeds []seeds.SeedFeed, resolver *resolve.Resolver, evidenceRepo database.EvidenceRepository,
	tracker *runs.Tracker, lookbackDays int) *IngestDealsTask {
	return &IngestDealsTask{
		Task:         NewTask(TaskTypeIngestDeals, false),
		defillama:    defillama,
		news:         news,
		newsFeeds:    newsFeeds,
		resolver:     resolver,
		evidenceRepo: evidenceRepo,
		tracker:      tracker,
		lookbackDays: lookbackDays,
	}
}

func (t *IngestDealsTask) Execute(ctx context.Context) error {
	return t.tracker.Track(t.GetStageName(), database.Params{"lookback_days": t.lookbackDays}, func(runID string) (string, database.Params, error) {
		raises, err := t.defillama.FetchRaises(ctx)
		if err != nil {
			return "", nil, err
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -t.lookbackDays)
		recent := clients.FilterSince(raises, cutoff)

		var stats resolve.Stats
		for _, raise := range recent {
			if err := t.ingestRaise(raise, &stats); err != nil {
				slog.Warn("Failed to ingest raise", "project", raise.Name, "error", err)
				stats.Failed++
			}
		}

		t.fetchNewsFeeds(ctx)

		slog.Info("Task completed",
			"type", "IngestDeals",
			"duration", t.GetDuration(),
			"total", len(recent),
			"created", stats.Created,
			"unchanged", stats.Unchanged,
			"failed", stats.Failed)

		return stats.RunStatus(), stats.Summary(), nil
	})
}

// ingestRaise resolves one raise into organization, deal and investor rows.
// The deal outcome is what the run statistics count; investor orgs are
// side effects.
func (t *IngestDealsTask) ingestRaise(raise clients.Raise, stats *resolve.Stats) error {
	now := time.Now().UTC()
	source := database.SourceRecord{
		Type:       "defillama",
		URL:        raise.Source,
		ImportedAt: now,
	}

	recipient, _, err := t.resolver.UpsertOrganization(resolve.OrganizationObservation{
		Name:   raise.Name,
		Kind:   database.KindStartup,
		Focus:  raise.Chains,
		Source: source,
		Stage:  t.GetStageName(),
	})
	if err != nil {
		return err
	}

	for _, investor := range raise.Investors() {
		if _, _, err := t.resolver.UpsertOrganization(resolve.OrganizationObservation{
			Name:   investor,
			Kind:   database.KindVC,
			Source: source,
			Stage:  t.GetStageName(),
		}); err != nil {
			slog.Warn("Failed to upsert investor", "name", investor, "error", err)
		}
	}

	_, outcome, err := t.resolver.UpsertDeal(resolve.DealObservation{
		OrgID:            recipient.ID,
		OrgName:          raise.Name,
		Round:            raise.Round,
		AmountUSD:        raise.Amount * 1_000_000,
		AmountOriginal:   raise.Amount * 1_000_000,
		CurrencyOriginal: "USD",
		AnnouncedOn:      raise.AnnouncedOn(),
		Investors:        raise.Investors(),
		Source:           source,
		Stage:            t.GetStageName(),
	})
	if err != nil {
		return err
	}

	stats.Add(outcome)
	return nil
}

// fetchNewsFeeds records configured funding-news items as evidence. Feed
// failures are logged, never fatal to the run.
func (t *IngestDealsTask) fetchNewsFeeds(ctx context.Context) {
	for _, feed := range t.newsFeeds {
		items, err := t.news.Fetch(ctx, feed.URL)
		if err != nil {
			slog.Warn("Failed to fetch news feed", "feed", feed.Name, "error", err)
			continue
		}

		for _, item := range items {
			extracted := database.Params{"title": item.Title, "feed": feed.Name}
			if item.PublishedAt != nil {
				extracted["published_at"] = item.PublishedAt.Format(time.RFC3339)
			}

			if _, err := t.evidenceRepo.Insert(&database.Evidence{
				EvidenceType:     "news_item",
				URL:              item.Link,
				RawContent:       item.Description,
				ExtractedData:    extracted,
				ExtractionMethod: "rss",
			}); err != nil {
				slog.Warn("Failed to store news item", "feed", feed.Name, "error", err)
			}
		}

		slog.Debug("News feed fetched", "feed", feed.Name, "items", len(items))
	}
}
