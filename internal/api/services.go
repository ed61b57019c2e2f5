package api

import (
	"github.com/habitleague/habitleague-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	HabitStats   *service.HabitStatsService
	Competitions *service.CompetitionService
	Lifecycle    *service.LifecycleService
	Clock        *service.Clock
}
