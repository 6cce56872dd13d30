package api

import (
	"github.com/regpipe/regpipe/app/config"
	"github.com/regpipe/regpipe/app/database"
	"github.com/regpipe/regpipe/app/tasks"
)

type Handler struct {
	regulationRepo database.RegulationRepository
	logRepo        database.ProcessingLogRepository
	runRepo        database.RunRepository
	scheduleCache  *config.ScheduleCache
	scheduler      tasks.TaskSchedulerInterface
}
