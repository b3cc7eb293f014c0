package app

import (
	httpH "github.com/yungbote/textbook-backend/internal/http/handlers"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
)

type Handlers struct {
	Textbook *httpH.TextbookHandler
	Activity *httpH.ActivityHandler
	Tracking *httpH.TrackingHandler
	Job      *httpH.JobHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Textbook: httpH.NewTextbookHandler(log, services.Textbook, services.Search, clients.Storage),
		Activity: httpH.NewActivityHandler(log, services.Activity),
		Tracking: httpH.NewTrackingHandler(log, services.Tracker),
		Job:      httpH.NewJobHandler(services.Jobs),
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"postgres": clients.Postgres,
			"cache":    clients.Cache,
		}),
	}
}
