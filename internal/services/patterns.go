package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type PatternService interface {
	// Refresh re-derives the owner's winning pattern from their best posts.
	// It returns nil when there are not enough good posts yet.
	Refresh(ctx context.Context, ownerUserID uuid.UUID) (*content.WinningPattern, error)
	GetForRequestUser(ctx context.Context) (*content.WinningPattern, error)
}

type patternService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         voicegen.PatternConfig
	performance repos.PerformanceRecordRepo
	patterns    repos.WinningPatternRepo
	clock       Clock
}

func NewPatternService(db *gorm.DB, baseLog *logger.Logger, cfg voicegen.PatternConfig, performance repos.PerformanceRecordRepo, patterns repos.WinningPatternRepo, clock Clock) PatternService {
	return &patternService{
		db:          db,
		log:         baseLog.With("service", "PatternService"),
		cfg:         cfg,
		performance: performance,
		patterns:    patterns,
		clock:       clock,
	}
}

func (s *patternService) Refresh(ctx context.Context, ownerUserID uuid.UUID) (*content.WinningPattern, error) {
	const op = "Patterns.Refresh"
	if ownerUserID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "owner is required")
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	limit := s.cfg.Window * 3
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.performance.ListPerformed(dbc, ownerUserID, []content.PerformanceTier{content.TierTopPerformer, content.TierGood}, limit)
	if err != nil {
		return nil, err
	}
	posts := make([]voicegen.PerformedPost, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, voicegen.PerformedPost{
			Style:          r.Style,
			Hook:           r.Hook,
			CharCount:      r.CharCount,
			Tags:           content.DecodeStrings(r.Tags),
			HookAngle:      r.HookAngle,
			PillarName:     r.PillarName,
			EngagementRate: r.EngagementRate,
			Tier:           r.Tier,
		})
	}
	summary := voicegen.DerivePatterns(posts, s.cfg)
	if summary == nil {
		s.log.Debug("Not enough top posts for a winning pattern", "owner_user_id", ownerUserID, "candidates", len(posts))
		return nil, nil
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, op, err)
	}
	now := s.clock.now()
	wp := &content.WinningPattern{
		OwnerUserID: ownerUserID,
		SampleSize:  summary.SampleSize,
		Summary:     b,
		DerivedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.patterns.Upsert(dbc, wp); err != nil {
		return nil, err
	}
	s.log.Info("Winning pattern refreshed", "owner_user_id", ownerUserID, "samples", summary.SampleSize, "hook_style", summary.DominantHookStyle)
	return wp, nil
}

func (s *patternService) GetForRequestUser(ctx context.Context) (*content.WinningPattern, error) {
	const op = "Patterns.Get"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	wp, err := s.patterns.GetByOwner(dbctx.Context{Ctx: ctx, Tx: s.db}, userID)
	if err != nil {
		return nil, err
	}
	if wp == nil {
		return nil, apperr.NotFound(op, "winning pattern")
	}
	return wp, nil
}
