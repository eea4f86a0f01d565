package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/tasks"
)

func NewHandler(orgRepo database.OrganizationRepository, dealRepo database.DealRepository,
	peopleRepo database.PersonRepository, runRepo database.RunRepository,
	introRepo database.IntroRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		orgRepo:    orgRepo,
		dealRepo:   dealRepo,
		peopleRepo: peopleRepo,
		runRepo:    runRepo,
		introRepo:  introRepo,
		scheduler:  scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if orgCount, err := h.orgRepo.Count(); err == nil {
		health["organizations"] = orgCount
	} else {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if count, err := h.orgRepo.Count(); err == nil {
		stats["organizations"] = count
	}
	if count, err := h.dealRepo.Count(); err == nil {
		stats["deals"] = count
	}
	if count, err := h.peopleRepo.Count(); err == nil {
		stats["people"] = count
	}

	lastRuns := map[string]interface{}{}
	for _, stage := range []tasks.TaskType{tasks.TaskTypeSyncSeeds, tasks.TaskTypeIngestDeals,
		tasks.TaskTypeResolveWebsites, tasks.TaskTypeCrawlTeams, tasks.TaskTypeEnrichSocials,
		tasks.TaskTypeDraftIntros} {
		run, err := h.runRepo.GetLastCompleted(string(stage))
		if err != nil || run == nil {
			continue
		}
		lastRuns[string(stage)] = map[string]interface{}{
			"status":       run.Status,
			"completed_at": run.CompletedAt,
			"summary":      run.OutputSummary,
		}
	}
	stats["last_runs"] = lastRuns

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListOrganizations(c *gin.Context) {
	kind := c.Query("kind")
	limit, offset := pagination(c)

	orgs, err := h.orgRepo.List(kind, limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_organizations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(orgs))
	for _, org := range orgs {
		result = append(result, map[string]interface{}{
			"id":          org.ID,
			"name":        org.Name,
			"kind":        org.Kind,
			"website":     org.Website,
			"description": org.Description,
			"focus":       org.Focus,
			"location":    org.Location,
			"socials":     org.Socials,
			"sources":     len(org.Sources),
			"updated_at":  org.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"organizations": result,
		"total":         len(result),
	})
}

func (h *Handler) APIGetOrganization(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing organization id parameter"})
		return
	}

	org, err := h.orgRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_organization", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"id":          org.ID,
		"name":        org.Name,
		"kind":        org.Kind,
		"website":     org.Website,
		"description": org.Description,
		"focus":       org.Focus,
		"location":    org.Location,
		"socials":     org.Socials,
		"sources":     org.Sources,
		"history":     org.History,
		"created_at":  org.CreatedAt,
		"updated_at":  org.UpdatedAt,
	})
}

func (h *Handler) APIListDeals(c *gin.Context) {
	limit, offset := pagination(c)

	deals, err := h.dealRepo.List(limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_deals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(deals))
	for _, deal := range deals {
		result = append(result, map[string]interface{}{
			"id":           deal.ID,
			"org_id":       deal.OrgID,
			"round":        deal.Round,
			"amount_usd":   deal.AmountUSD,
			"announced_on": deal.AnnouncedOn,
			"investors":    deal.Investors,
			"source":       deal.Source.Type,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"deals": result,
		"total": len(result),
	})
}

func (h *Handler) APIListPeople(c *gin.Context) {
	limit, offset := pagination(c)

	people, err := h.peopleRepo.List(limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_people", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(people))
	for _, person := range people {
		result = append(result, map[string]interface{}{
			"id":                  person.ID,
			"full_name":           person.FullName,
			"email":               person.Email,
			"socials":             person.Socials,
			"telegram_handle":     person.TelegramHandle,
			"telegram_confidence": person.TelegramConfidence,
			"updated_at":          person.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"people": result,
		"total":  len(result),
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	stage := c.Query("stage")
	limit, _ := pagination(c)

	runs, err := h.runRepo.List(stage, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		result = append(result, map[string]interface{}{
			"id":            run.ID,
			"stage_name":    run.StageName,
			"status":        run.Status,
			"started_at":    run.StartedAt,
			"completed_at":  run.CompletedAt,
			"summary":       run.OutputSummary,
			"error_message": run.ErrorMessage,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  result,
		"total": len(result),
	})
}

func (h *Handler) APIListIntros(c *gin.Context) {
	status := c.Query("status")
	limit, _ := pagination(c)

	intros, err := h.introRepo.List(status, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_intros", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]map[string]interface{}, 0, len(intros))
	for _, intro := range intros {
		result = append(result, map[string]interface{}{
			"id":         intro.ID,
			"person_id":  intro.PersonID,
			"subject":    intro.Subject,
			"message":    intro.Message,
			"context":    intro.ContextSnapshot,
			"status":     intro.Status,
			"created_at": intro.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"intros": result,
		"total":  len(result),
	})
}

func (h *Handler) APIRunStage(c *gin.Context) {
	stage := c.Param("stage")
	if stage == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing stage parameter"})
		return
	}

	force := c.Query("force") == "true"

	if err := h.scheduler.EnqueueStage(stage, force); err != nil {
		slog.Error("Error enqueueing stage task", "stage", stage, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to enqueue stage task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stage task enqueued successfully",
		"stage":   stage,
		"force":   force,
	})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
