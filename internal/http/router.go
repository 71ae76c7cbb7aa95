package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/postvoice-backend/internal/http/handlers"
	httpMW "github.com/yungbote/postvoice-backend/internal/http/middleware"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	HealthHandler  *httpH.HealthHandler
	VoiceHandler   *httpH.VoiceHandler
	PillarHandler  *httpH.PillarHandler
	TopicHandler   *httpH.TopicHandler
	DraftHandler   *httpH.DraftHandler
	AccountHandler *httpH.AccountHandler
	JobHandler     *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthcheck", "/readyz", "/metrics"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.AttachCaller())
	{
		// Voice
		if cfg.VoiceHandler != nil {
			api.POST("/voice/examples", cfg.VoiceHandler.AddExamples)
			api.GET("/voice/examples", cfg.VoiceHandler.ListExamples)
			api.DELETE("/voice/examples/:id", cfg.VoiceHandler.ArchiveExample)
			api.POST("/voice/import", cfg.VoiceHandler.ImportFromProfile)
			api.GET("/voice/status", cfg.VoiceHandler.Status)
			api.POST("/voice/train", cfg.VoiceHandler.Train)
		}

		// Pillars
		if cfg.PillarHandler != nil {
			api.POST("/pillars", cfg.PillarHandler.Create)
			api.GET("/pillars", cfg.PillarHandler.List)
			api.GET("/pillars/:id", cfg.PillarHandler.Get)
			api.PATCH("/pillars/:id", cfg.PillarHandler.Update)
			api.DELETE("/pillars/:id", cfg.PillarHandler.Delete)
		}

		// Topics
		if cfg.TopicHandler != nil {
			api.POST("/topics/raw", cfg.TopicHandler.Ingest)
			api.POST("/topics/classify", cfg.TopicHandler.Classify)
			api.POST("/topics/classify-pending", cfg.TopicHandler.ClassifyPending)
			api.GET("/topics", cfg.TopicHandler.List)
			api.GET("/topics/:id", cfg.TopicHandler.Get)
			api.PATCH("/topics/:id/status", cfg.TopicHandler.SetStatus)
			api.DELETE("/topics/:id", cfg.TopicHandler.Archive)
		}

		// Drafts
		if cfg.DraftHandler != nil {
			api.POST("/topics/:id/drafts", cfg.DraftHandler.Generate)
			api.POST("/topics/:id/drafts/regenerate", cfg.DraftHandler.Regenerate)
			api.GET("/drafts", cfg.DraftHandler.List)
			api.GET("/drafts/:id", cfg.DraftHandler.Get)
			api.POST("/drafts/:id/approve", cfg.DraftHandler.Approve)
			api.POST("/drafts/:id/reject", cfg.DraftHandler.Reject)
			api.POST("/drafts/:id/schedule", cfg.DraftHandler.Schedule)
			api.DELETE("/drafts/:id", cfg.DraftHandler.Delete)
			api.POST("/drafts/:id/performance", cfg.DraftHandler.RecordPerformance)
			api.GET("/drafts/:id/performance", cfg.DraftHandler.GetPerformance)
		}

		// Account
		if cfg.AccountHandler != nil {
			api.GET("/usage", cfg.AccountHandler.Usage)
			api.GET("/patterns", cfg.AccountHandler.Patterns)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs", cfg.JobHandler.ListJobs)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
