package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/sche/vc-agents/app/database"
)

// MockRunRepository implements a simple mock for testing
type MockRunRepository struct {
	runs []database.Run
	err  error
}

var _ database.RunRepository = (*MockRunRepository)(nil)

func (m *MockRunRepository) Insert(run *database.Run) (string, error) {
	return "test-run-id", nil
}

func (m *MockRunRepository) Complete(id string, status string, summary database.Params) error {
	return nil
}

func (m *MockRunRepository) Fail(id string, message, trace string) error {
	return nil
}

func (m *MockRunRepository) GetByID(id string) (*database.Run, error) {
	return nil, nil
}

func (m *MockRunRepository) List(stageName string, limit int) ([]database.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []database.Run
	for _, run := range m.runs {
		if stageName != "" && run.StageName != stageName {
			continue
		}
		result = append(result, run)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MockRunRepository) GetLastCompleted(stageName string) (*database.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, run := range m.runs {
		if run.StageName == stageName && run.Status == database.RunStatusCompleted {
			return &run, nil
		}
	}
	return nil, nil
}

func (m *MockRunRepository) MarkStuck(olderThan time.Time) (int64, error) {
	return 0, nil
}

func newTestScheduler(runRepo database.RunRepository) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runRepo:     runRepo,
		seedsFile:   "./seeds.yml",
		workerCount: 1,
		interval:    time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 10),
	}
}

func TestStageDueNeverRun(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})

	due, err := scheduler.stageDue(TaskTypeIngestDeals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !due {
		t.Error("Expected stage with no completed runs to be due")
	}
}

func TestStageDueRecentRun(t *testing.T) {
	completedAt := time.Now().Add(-10 * time.Minute)
	scheduler := newTestScheduler(&MockRunRepository{
		runs: []database.Run{
			{StageName: "ingest_deals", Status: database.RunStatusCompleted, CompletedAt: &completedAt},
		},
	})

	due, err := scheduler.stageDue(TaskTypeIngestDeals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if due {
		t.Error("Expected stage with a recent completed run not to be due")
	}
}

func TestStageDueOldRun(t *testing.T) {
	completedAt := time.Now().Add(-7 * time.Hour)
	scheduler := newTestScheduler(&MockRunRepository{
		runs: []database.Run{
			{StageName: "ingest_deals", Status: database.RunStatusCompleted, CompletedAt: &completedAt},
		},
	})

	due, err := scheduler.stageDue(TaskTypeIngestDeals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !due {
		t.Error("Expected stage with an old completed run to be due")
	}
}

func TestStageDueWhileRunning(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{
		runs: []database.Run{
			{StageName: "ingest_deals", Status: database.RunStatusRunning},
		},
	})

	due, err := scheduler.stageDue(TaskTypeIngestDeals)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if due {
		t.Error("Expected stage with a run in flight not to be due")
	}
}

func TestEnqueueStage(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})

	if err := scheduler.EnqueueStage("sync_seeds", true); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	select {
	case task := <-scheduler.taskQueue:
		if task.GetType() != TaskTypeSyncSeeds {
			t.Errorf("Expected task type %s, got %s", TaskTypeSyncSeeds, task.GetType())
		}
	default:
		t.Fatal("Expected a task in the queue")
	}
}

func TestEnqueueStageUnknown(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})

	if err := scheduler.EnqueueStage("no_such_stage", false); err == nil {
		t.Error("Expected error for unknown stage")
	}
}

func TestEnqueueStageForce(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})

	if err := scheduler.EnqueueStage("crawl_teams", true); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task := <-scheduler.taskQueue
	crawlTask, ok := task.(*CrawlTeamsTask)
	if !ok {
		t.Fatalf("Expected *CrawlTeamsTask, got %T", task)
	}
	if !crawlTask.Force {
		t.Error("Expected force flag to be set on the task")
	}
}

func TestEnqueueTaskAfterStop(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})
	scheduler.Stop()

	if err := scheduler.EnqueueTask(NewSyncSeedsTask("./seeds.yml", nil, nil)); err == nil {
		t.Error("Expected error enqueueing on a stopped scheduler")
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := newTestScheduler(&MockRunRepository{})
	scheduler.taskQueue = make(chan TaskInterface, 1)

	if err := scheduler.EnqueueTask(NewSyncSeedsTask("./seeds.yml", nil, nil)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := scheduler.EnqueueTask(NewSyncSeedsTask("./seeds.yml", nil, nil)); err == nil {
		t.Error("Expected error when queue is full")
	}
}
