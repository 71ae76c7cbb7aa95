package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpapi "github.com/yungbote/postvoice-backend/internal/http"
	httpH "github.com/yungbote/postvoice-backend/internal/http/handlers"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Voice   *httpH.VoiceHandler
	Pillar  *httpH.PillarHandler
	Topic   *httpH.TopicHandler
	Draft   *httpH.DraftHandler
	Account *httpH.AccountHandler
	Job     *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(pinger),
		Voice:   httpH.NewVoiceHandler(services.Voice),
		Pillar:  httpH.NewPillarHandler(services.Pillars),
		Topic:   httpH.NewTopicHandler(services.Topics),
		Draft:   httpH.NewDraftHandler(services.Drafts, services.Performance),
		Account: httpH.NewAccountHandler(services.Usage, services.Patterns),
		Job:     httpH.NewJobHandler(services.Jobs),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    serviceName,
		CORSOrigins:    cfg.CORSOrigins,
		HealthHandler:  handlers.Health,
		VoiceHandler:   handlers.Voice,
		PillarHandler:  handlers.Pillar,
		TopicHandler:   handlers.Topic,
		DraftHandler:   handlers.Draft,
		AccountHandler: handlers.Account,
		JobHandler:     handlers.Job,
	})
}
