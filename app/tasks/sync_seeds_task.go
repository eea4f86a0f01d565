package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
	"github.com/sche/vc-agents/app/seeds"
)

// SyncSeedsTask upserts the manually curated organizations from the seed
// file. Runs at startup so seeded VCs exist before any enrichment stage.
type SyncSeedsTask struct {
	Task
	seedsFile string
	resolver  *resolve.Resolver
	tracker   *runs.Tracker
}

func NewSyncSeedsTask(seedsFile string, resolver *resolve.Resolver, tracker *runs.Tracker) *SyncSeedsTask {
	return &SyncSeedsTask{
		Task:      NewTask(TaskTypeSyncSeeds, false),
		seedsFile: seedsFile,
		resolver:  resolver,
		tracker:   tracker,
	}
}

func (t *SyncSeedsTask) Execute(ctx context.Context) error {
	file, err := seeds.Load(t.seedsFile)
	if err != nil {
		return err
	}

	return t.tracker.Track(t.GetStageName(), database.Params{"seeds_file": t.seedsFile}, func(runID string) (string, database.Params, error) {
		var stats resolve.Stats

		for _, seed := range file.Organizations {
			obs := resolve.OrganizationObservation{
				Name:    seed.Name,
				Kind:    seed.Kind,
				Website: seed.Website,
				Focus:   seed.Focus,
				Source: database.SourceRecord{
					Type:       "seed",
					ImportedAt: time.Now().UTC(),
				},
				Stage: t.GetStageName(),
			}

			_, outcome, err := t.resolver.UpsertOrganization(obs)
			if err != nil {
				slog.Warn("Failed to upsert seed organization", "name", seed.Name, "error", err)
				stats.Failed++
				continue
			}
			stats.Add(outcome)
		}

		slog.Info("Task completed",
			"type", "SyncSeeds",
			"duration", t.GetDuration(),
			"total", len(file.Organizations),
			"created", stats.Created,
			"unchanged", stats.Unchanged)

		return stats.RunStatus(), stats.Summary(), nil
	})
}
