package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sche/vc-agents/app/cfg"
	"github.com/sche/vc-agents/app/clients"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/resolve"
	"github.com/sche/vc-agents/app/runs"
	"github.com/sche/vc-agents/app/seeds"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// stageIntervals is how often each pipeline stage is re-run. A stage is due
// when its last completed run is older than its interval.
var stageIntervals = map[TaskType]time.Duration{
	TaskTypeIngestDeals:     6 * time.Hour,
	TaskTypeResolveWebsites: 1 * time.Hour,
	TaskTypeCrawlTeams:      2 * time.Hour,
	TaskTypeEnrichSocials:   1 * time.Hour,
	TaskTypeDraftIntros:     2 * time.Hour,
}

// stageOrder fixes the enqueue order so upstream stages are checked first
// within one tick
var stageOrder = []TaskType{
	TaskTypeIngestDeals,
	TaskTypeResolveWebsites,
	TaskTypeCrawlTeams,
	TaskTypeEnrichSocials,
	TaskTypeDraftIntros,
}

type Scheduler struct {
	orgRepo      database.OrganizationRepository
	peopleRepo   database.PersonRepository
	roleRepo     database.RoleRepository
	evidenceRepo database.EvidenceRepository
	runRepo      database.RunRepository
	introRepo    database.IntroRepository
	resolver     *resolve.Resolver
	tracker      *runs.Tracker

	defillama *clients.DefiLlamaClient
	news      *clients.NewsFeedClient
	llm       *clients.LLMClient
	neynar    *clients.NeynarClient
	page      *clients.PageClient
	newsFeeds []seeds.SeedFeed

	seedsFile      string
	lookbackDays   int
	recrawlTTL     time.Duration
	minConfidence  float64
	batchSize      int
	stuckRunMaxAge time.Duration

	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(orgRepo database.OrganizationRepository, peopleRepo database.PersonRepository,
	roleRepo database.RoleRepository, evidenceRepo database.EvidenceRepository,
	runRepo database.RunRepository, introRepo database.IntroRepository,
	resolver *resolve.Resolver, tracker *runs.Tracker,
	httpClient *http.Client, newsFeeds []seeds.SeedFeed) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		orgRepo:        orgRepo,
		peopleRepo:     peopleRepo,
		roleRepo:       roleRepo,
		evidenceRepo:   evidenceRepo,
		runRepo:        runRepo,
		introRepo:      introRepo,
		resolver:       resolver,
		tracker:        tracker,
		defillama:      clients.NewDefiLlamaClient(httpClient, c.UserAgent),
		news:           clients.NewNewsFeedClient(c.UserAgent),
		llm:            clients.NewLLMClient(httpClient, c.OpenAIAPIKey, c.PerplexityAPIKey),
		neynar:         clients.NewNeynarClient(httpClient, c.NeynarAPIKey),
		page:           clients.NewPageClient(httpClient, c.UserAgent),
		newsFeeds:      newsFeeds,
		seedsFile:      c.SeedsFile,
		lookbackDays:   c.DealsLookbackDays,
		recrawlTTL:     time.Duration(c.RecrawlAfterDays) * 24 * time.Hour,
		minConfidence:  c.MinConfidence,
		batchSize:      c.BatchSize,
		stuckRunMaxAge: time.Duration(c.StuckRunMaxAge) * time.Minute,
		interval:       time.Duration(c.SchedulerInterval) * time.Second,
		workerCount:    c.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

// Stop drains the workers. The task queue is deliberately left open so an
// enqueue racing shutdown gets an error instead of a send on a closed channel.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueStage queues one stage by name, used by the API for manual triggers
func (s *Scheduler) EnqueueStage(stageName string, force bool) error {
	task := s.newStageTask(TaskType(stageName), force)
	if task == nil {
		return fmt.Errorf("unknown stage %q", stageName)
	}
	return s.EnqueueTask(task)
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewSyncSeedsTask(s.seedsFile, s.resolver, s.tracker)); err != nil {
		slog.Warn("Failed to enqueue SyncSeedsTask", "error", err)
	}
	s.enqueueDueTasks()
}

func (s *Scheduler) enqueueDueTasks() {
	if _, err := s.tracker.MarkStuck(s.stuckRunMaxAge); err != nil {
		slog.Warn("Failed to sweep stuck runs", "error", err)
	}

	for _, stage := range stageOrder {
		due, err := s.stageDue(stage)
		if err != nil {
			slog.Warn("Failed to check stage schedule", "stage", string(stage), "error", err)
			continue
		}
		if !due {
			continue
		}

		task := s.newStageTask(stage, false)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue stage task", "stage", string(stage), "error", err)
		}
	}
}

// stageDue reports whether a stage's last completed run is older than its
// interval. A stage with a run currently in flight is not due.
func (s *Scheduler) stageDue(stage TaskType) (bool, error) {
	running, err := s.runRepo.List(string(stage), 1)
	if err != nil {
		return false, err
	}
	if len(running) > 0 && running[0].Status == database.RunStatusRunning {
		return false, nil
	}

	last, err := s.runRepo.GetLastCompleted(string(stage))
	if err != nil {
		return false, err
	}
	if last == nil || last.CompletedAt == nil {
		return true, nil
	}
	return time.Since(*last.CompletedAt) >= stageIntervals[stage], nil
}

func (s *Scheduler) newStageTask(stage TaskType, force bool) TaskInterface {
	switch stage {
	case TaskTypeSyncSeeds:
		return NewSyncSeedsTask(s.seedsFile, s.resolver, s.tracker)
	case TaskTypeIngestDeals:
		return NewIngestDealsTask(s.defillama, s.news, s.newsFeeds, s.resolver, s.evidenceRepo, s.tracker, s.lookbackDays)
	case TaskTypeResolveWebsites:
		return NewResolveWebsitesTask(s.orgRepo, s.llm, s.page, s.resolver, s.tracker, s.batchSize)
	case TaskTypeCrawlTeams:
		return NewCrawlTeamsTask(s.orgRepo, s.evidenceRepo, s.page, s.llm, s.resolver, s.tracker, s.recrawlTTL, s.batchSize, force)
	case TaskTypeEnrichSocials:
		return NewEnrichSocialsTask(s.peopleRepo, s.orgRepo, s.evidenceRepo, s.llm, s.neynar, s.resolver, s.tracker, s.minConfidence, s.batchSize)
	case TaskTypeDraftIntros:
		return NewDraftIntrosTask(s.peopleRepo, s.orgRepo, s.roleRepo, s.introRepo, s.llm, s.tracker, s.batchSize)
	default:
		return nil
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 15*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
