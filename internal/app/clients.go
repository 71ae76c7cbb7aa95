package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
	"github.com/yungbote/postvoice-backend/internal/platform/openai"
	"github.com/yungbote/postvoice-backend/internal/platform/redislock"
	"github.com/yungbote/postvoice-backend/internal/platform/scrape"
)

type Clients struct {
	OpenAI  *openai.Client
	Scraper voicegen.ProfileScrapeService
	Redis   goredis.UniversalClient
	Locker  redislock.Locker
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	// OpenAI
	openaiClient, err := openai.NewClient(log, cfg.OpenAI, metrics)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Profile scraping is optional; voice import falls back to manual entry.
	var scraper voicegen.ProfileScrapeService
	if cfg.ScrapeBaseURL != "" {
		scraper = scrape.NewClient(log, cfg.ScrapeBaseURL, cfg.ScrapeAPIKey, cfg.ScrapeTimeout)
	} else {
		log.Warn("SCRAPE_BASE_URL not set; profile import disabled")
	}

	// Redis
	var rdb goredis.UniversalClient
	var locker redislock.Locker
	if cfg.RedisAddr != "" {
		rdb = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("ping redis: %w", err)
		}
		locker = redislock.NewRedisLocker(log, rdb, "postvoice:lock:", cfg.TopicLockTTL)
	} else {
		log.Warn("REDIS_ADDR not set; topic locks are process-local")
		locker = redislock.NewLocalLocker()
	}

	return Clients{
		OpenAI:  openaiClient,
		Scraper: scraper,
		Redis:   rdb,
		Locker:  locker,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
