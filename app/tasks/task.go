package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeSyncSeeds       TaskType = "sync_seeds"
	TaskTypeIngestDeals     TaskType = "ingest_deals"
	TaskTypeResolveWebsites TaskType = "resolve_websites"
	TaskTypeCrawlTeams      TaskType = "crawl_teams"
	TaskTypeEnrichSocials   TaskType = "enrich_socials"
	TaskTypeDraftIntros     TaskType = "draft_intros"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetStageName() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID         string
	Type       TaskType
	Force      bool
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetStageName() string {
	return string(t.Type)
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, force bool) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Force:      force,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}
