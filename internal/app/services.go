package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/jobs/pipeline/winning_patterns_refresh"
	"github.com/yungbote/postvoice-backend/internal/jobs/runtime"
	"github.com/yungbote/postvoice-backend/internal/jobs/worker"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type Services struct {
	Jobs        services.JobService
	Usage       services.UsageService
	Voice       services.VoiceService
	Pillars     services.PillarService
	Topics      services.TopicService
	Drafts      services.DraftService
	Performance services.EngagementFeedbackLoop
	Patterns    services.PatternService

	Registry  *runtime.Registry
	JobWorker *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Hooks:    aggregates.NewObservabilityHooks(metrics),
		CASGuard: aggregates.NewCASGuard(db),
	}
	draftSet := aggregates.NewDraftSetAggregate(aggregates.DraftSetAggregateDeps{Base: base, Topics: set.Topics, Drafts: set.Drafts})
	performanceAgg := aggregates.NewPerformanceAggregate(aggregates.PerformanceAggregateDeps{Base: base, Drafts: set.Drafts, Performance: set.Performance})
	trainingAgg := aggregates.NewVoiceTrainingAggregate(aggregates.VoiceTrainingAggregateDeps{Base: base, Examples: set.VoiceExamples, Profiles: set.VoiceProfiles})
	pillarAgg := aggregates.NewPillarAggregate(aggregates.PillarAggregateDeps{Base: base, Pillars: set.Pillars})
	topicAgg := aggregates.NewTopicAggregate(aggregates.TopicAggregateDeps{Base: base, RawTopics: set.RawTopics, Topics: set.Topics})

	builder := voicegen.NewVoiceProfileBuilder(cfg.Pipeline, clients.OpenAI, log, metrics)
	classifier := voicegen.NewTopicClassifier(cfg.Pipeline, clients.OpenAI, log, metrics)
	generator := voicegen.NewDraftGenerator(cfg.Pipeline, clients.OpenAI, clients.OpenAI, log, metrics)

	jobs := services.NewJobService(db, log, set.JobRuns)
	usage := services.NewUsageService(db, log, set.Usage, cfg.UsageLimits, nil)
	patterns := services.NewPatternService(db, log, cfg.Pipeline.Patterns, set.Performance, set.Patterns, nil)

	voice := services.NewVoiceService(services.VoiceServiceDeps{
		DB:       db,
		Log:      log,
		Config:   cfg.Pipeline,
		Examples: set.VoiceExamples,
		Profiles: set.VoiceProfiles,
		Pillars:  set.Pillars,
		Training: trainingAgg,
		Builder:  builder,
		Scraper:  clients.Scraper,
		Usage:    usage,
	})
	coordinator := services.NewRegenerationCoordinator(services.RegenerationDeps{
		DB:        db,
		Log:       log,
		Config:    cfg.Pipeline,
		Examples:  set.VoiceExamples,
		Profiles:  set.VoiceProfiles,
		Pillars:   set.Pillars,
		Topics:    set.Topics,
		Patterns:  set.Patterns,
		DraftSet:  draftSet,
		Generator: generator,
		Usage:     usage,
		Locker:    clients.Locker,
		Metrics:   metrics,
	})
	feedback := services.NewEngagementFeedbackLoop(services.FeedbackDeps{
		DB:          db,
		Log:         log,
		Config:      cfg.Pipeline,
		Drafts:      set.Drafts,
		Topics:      set.Topics,
		Performance: set.Performance,
		Aggregate:   performanceAgg,
		Jobs:        jobs,
		Metrics:     metrics,
	})

	registry := runtime.NewRegistry()
	if err := registry.Register(winning_patterns_refresh.New(log, patterns)); err != nil {
		return Services{}, fmt.Errorf("register job handlers: %w", err)
	}

	return Services{
		Jobs:        jobs,
		Usage:       usage,
		Voice:       voice,
		Pillars:     services.NewPillarService(db, log, set.Pillars, pillarAgg, nil),
		Topics:      services.NewTopicService(db, log, set.Pillars, set.RawTopics, set.Topics, topicAgg, classifier, nil),
		Drafts:      services.NewDraftService(db, log, set.Drafts, draftSet, coordinator, nil),
		Performance: feedback,
		Patterns:    patterns,
		Registry:    registry,
		JobWorker:   worker.NewWorker(db, log, set.JobRuns, registry, metrics, cfg.Worker),
	}, nil
}
