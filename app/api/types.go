package api

import (
	"github.com/sche/vc-agents/app/database"
	"github.com/sche/vc-agents/app/tasks"
)

type Handler struct {
	orgRepo    database.OrganizationRepository
	dealRepo   database.DealRepository
	peopleRepo database.PersonRepository
	runRepo    database.RunRepository
	introRepo  database.IntroRepository
	scheduler  tasks.TaskSchedulerInterface
}
