package tasks

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
)

// DraftIntrosTask generates outreach drafts for reachable people that have
// none yet. Drafts are stored for review; nothing is ever sent automatically.
type DraftIntrosTask struct {
	Task
	peopleRepo database.PersonRepository
	orgRepo    database.OrganizationRepository
	roleRepo   database.RoleRepository
	introRepo  database.IntroRepository
	llm        *clients.LLMClient
	tracker    *runs.Tracker
	batchSize  int
}

func NewDraftIntrosTask(peopleRepo database.PersonRepository, orgRepo database.OrganizationRepository,
	roleRepo database.RoleRepository, introRepo database.IntroRepository,
	llm *clients.LLMClient, tracker *runs.Tracker, batchSize int) *DraftIntrosTask {
	return &DraftIntrosTask{
		Task:       NewTask(TaskTypeDraftIntros, false),
		peopleRepo: peopleRepo,
		orgRepo:    orgRepo,
		roleRepo:   roleRepo,
		introRepo:  introRepo,
		llm:        llm,
		tracker:    tracker,
		batchSize:  batchSize,
	}
}

func (t *DraftIntrosTask) Execute(ctx context.Context) error {
	return t.tracker.Track(t.GetStageName(), database.Params{"batch_size": t.batchSize}, func(runID string) (string, database.Params, error) {
		people, err := t.peopleRepo.GetForIntroDrafting(t.batchSize)
		if err != nil {
			return "", nil, err
		}

		var stats resolve.Stats
		for _, person := range people {
			if err := t.draftForPerson(ctx, person); err != nil {
				slog.Warn("Failed to draft intro", "name", person.FullName, "error", err)
				stats.Failed++
				continue
			}
			stats.Add(resolve.OutcomeCreated)
		}

		slog.Info("Task completed",
			"type", "DraftIntros",
			"duration", t.GetDuration(),
			"total", len(people),
			"drafted", stats.Created,
			"failed", stats.Failed)

		return stats.RunStatus(), stats.Summary(), nil
	})
}

func (t *DraftIntrosTask) draftForPerson(ctx context.Context, person database.Person) error {
	title, orgName, focus := t.currentRoleContext(person)

	draft, err := t.llm.DraftIntro(ctx, person.FullName, title, orgName, focus)
	if err != nil {
		return err
	}

	_, err = t.introRepo.Insert(&database.Intro{
		PersonID: person.ID,
		Subject:  draft.Subject,
		Message:  draft.Message,
		ContextSnapshot: database.Params{
			"title":    title,
			"org_name": orgName,
			"focus":    focus,
		},
	})
	return err
}

// currentRoleContext collects what is known about the person's current
// position for the draft prompt. Missing context degrades to empty strings;
// the draft is simply less specific.
func (t *DraftIntrosTask) currentRoleContext(person database.Person) (title, orgName, focus string) {
	roles, err := t.roleRepo.ListByPerson(person.ID)
	if err != nil || len(roles) == 0 {
		return "", "", ""
	}

	for _, role := range roles {
		if !role.IsCurrent {
			continue
		}
		title = role.Title
		org, err := t.orgRepo.GetByID(role.OrgID)
		if err == nil && org != nil {
			orgName = org.Name
			focus = strings.Join(org.Focus, ", ")
		}
		break
	}
	return title, orgName, focus
}
