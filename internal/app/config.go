package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/postvoice-backend/internal/data/db"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/jobs/worker"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/envutil"
	"github.com/yungbote/postvoice-backend/internal/platform/openai"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type Config struct {
	LogMode     string
	Port        string
	CORSOrigins []string

	DB       db.Config
	Pipeline voicegen.Config
	OpenAI   openai.Config
	Worker   worker.Config
	Otel     observability.OtelConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TopicLockTTL  time.Duration

	ScrapeBaseURL string
	ScrapeAPIKey  string
	ScrapeTimeout time.Duration

	UsageLimits services.UsageLimits

	MetricsEnabled  bool
	QueueStatsEvery time.Duration
}

// LoadConfig reads the process environment after overlaying .env files.
func LoadConfig() (Config, []string, error) {
	loaded := envutil.LoadDotEnv(".env", ".env.local")

	pipeline, err := voicegen.LoadConfig(envutil.String("PIPELINE_CONFIG_PATH", ""))
	if err != nil {
		return Config{}, loaded, fmt.Errorf("pipeline config: %w", err)
	}

	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Port:        envutil.String("PORT", "8080"),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB:       db.ConfigFromEnv(),
		Pipeline: pipeline,
		OpenAI:   openai.ConfigFromEnv(),
		Worker:   worker.ConfigFromEnv(),
		Otel:     observability.OtelConfigFromEnv(),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		TopicLockTTL:  envutil.Seconds("TOPIC_LOCK_TTL_SECONDS", 2*time.Minute),

		ScrapeBaseURL: envutil.String("SCRAPE_BASE_URL", ""),
		ScrapeAPIKey:  envutil.String("SCRAPE_API_KEY", ""),
		ScrapeTimeout: envutil.Seconds("SCRAPE_TIMEOUT_SECONDS", 30*time.Second),

		UsageLimits: services.UsageLimits{
			content.UsageActionGeneration:   envutil.Int("USAGE_LIMIT_GENERATION", 30),
			content.UsageActionRegeneration: envutil.Int("USAGE_LIMIT_REGENERATION", 60),
			content.UsageActionVoiceTrain:   envutil.Int("USAGE_LIMIT_VOICE_TRAINING", 10),
		},

		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", true),
		QueueStatsEvery: envutil.Seconds("JOB_QUEUE_STATS_SECONDS", 15*time.Second),
	}
	return cfg, loaded, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
