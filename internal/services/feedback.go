package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	jobtypes "github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type RecordPerformanceInput struct {
	DraftID     uuid.UUID
	Likes       int
	Comments    int
	Reposts     int
	Impressions int
	MeasuredAt  time.Time
}

type PerformanceOutcome struct {
	Record         *content.PerformanceRecord
	Tier           content.PerformanceTier
	EngagementRate float64
	Relative       bool
	// Updated is true when this report replaced an earlier one.
	Updated       bool
	RefreshQueued bool
}

// EngagementFeedbackLoop scores a published post against the creator's own
// history and queues a winning-pattern refresh for top performers.
type EngagementFeedbackLoop interface {
	RecordPerformance(ctx context.Context, in RecordPerformanceInput) (*PerformanceOutcome, error)
	GetPerformance(ctx context.Context, draftID uuid.UUID) (*content.PerformanceRecord, error)
}

type FeedbackDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Config      voicegen.Config
	Drafts      repos.GeneratedDraftRepo
	Topics      repos.ClassifiedTopicRepo
	Performance repos.PerformanceRecordRepo
	Aggregate   aggregates.PerformanceAggregate
	Jobs        JobService
	Metrics     *observability.Metrics
	Clock       Clock
}

type engagementFeedbackLoop struct {
	deps FeedbackDeps
	log  *logger.Logger
}

func NewEngagementFeedbackLoop(deps FeedbackDeps) EngagementFeedbackLoop {
	return &engagementFeedbackLoop{deps: deps, log: deps.Log.With("service", "EngagementFeedbackLoop")}
}

func (l *engagementFeedbackLoop) RecordPerformance(ctx context.Context, in RecordPerformanceInput) (*PerformanceOutcome, error) {
	const op = "Performance.Record"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if in.DraftID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "draft id is required")
	}
	eng := voicegen.EngagementInput{Likes: in.Likes, Comments: in.Comments, Reposts: in.Reposts, Impressions: in.Impressions}
	if err := eng.Validate(); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: l.deps.DB}
	draft, err := l.deps.Drafts.GetByID(dbc, userID, in.DraftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, apperr.NotFound(op, "draft")
	}

	history, err := l.deps.Performance.ListRecent(dbc, userID, l.deps.Config.Performance.HistoryWindow, draft.ID)
	if err != nil {
		return nil, err
	}
	score := l.deps.Config.Performance.Score(eng, voicegen.NewBaseline(history))
	span.SetAttributes(attribute.String("tier", string(score.Tier)), attribute.Int("history", len(history)))

	now := l.deps.Clock.now()
	measured := in.MeasuredAt.UTC()
	if in.MeasuredAt.IsZero() {
		measured = now
	}
	rec := &content.PerformanceRecord{
		OwnerUserID:     userID,
		DraftID:         draft.ID,
		Likes:           in.Likes,
		Comments:        in.Comments,
		Reposts:         in.Reposts,
		Impressions:     in.Impressions,
		EngagementRate:  score.EngagementRate,
		WeightedActions: score.WeightedActions,
		Tier:            score.Tier,
		MeasuredAt:      measured,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	top := score.Tier == content.TierTopPerformer
	if top {
		rec.PatternExtraction = l.extractPattern(dbc, userID, draft, score)
	}

	res, err := l.deps.Aggregate.Record(ctx, aggregates.RecordPerformanceInput{
		OwnerUserID: userID,
		Record:      rec,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}
	l.deps.Metrics.IncTier(string(score.Tier))

	out := &PerformanceOutcome{
		Record:         res.Record,
		Tier:           score.Tier,
		EngagementRate: score.EngagementRate,
		Relative:       score.Relative,
		Updated:        res.Updated,
	}
	if top {
		out.RefreshQueued = l.queueRefresh(ctx, userID, draft.ID)
	}
	l.log.Info("Performance recorded",
		"draft_id", draft.ID,
		"tier", score.Tier,
		"engagement_rate", score.EngagementRate,
		"relative", score.Relative,
		"updated", res.Updated,
	)
	return out, nil
}

// queueRefresh never fails the caller; the refresh is best effort.
func (l *engagementFeedbackLoop) queueRefresh(ctx context.Context, userID, draftID uuid.UUID) bool {
	if l.deps.Jobs == nil {
		return false
	}
	_, created, err := l.deps.Jobs.EnqueueIfNeeded(
		dbctx.Context{Ctx: context.WithoutCancel(ctx), Tx: l.deps.DB},
		userID,
		jobtypes.TypeWinningPatternsRefresh,
		"winning_pattern",
		nil,
		map[string]any{"trigger_draft_id": draftID.String()},
	)
	if err != nil {
		l.log.Error("Winning pattern refresh enqueue failed", "owner_user_id", userID, "draft_id", draftID, "error", err)
		return false
	}
	return created
}

func (l *engagementFeedbackLoop) extractPattern(dbc dbctx.Context, userID uuid.UUID, d *content.GeneratedDraft, score voicegen.EngagementScore) []byte {
	post := voicegen.PerformedPost{
		Style:          d.Style,
		Hook:           d.Hook,
		CharCount:      d.CharCount,
		Tags:           content.DecodeStrings(d.Tags),
		EngagementRate: score.EngagementRate,
		Tier:           score.Tier,
	}
	if t, err := l.deps.Topics.GetByID(dbc, userID, d.TopicID); err == nil && t != nil {
		post.HookAngle = t.HookAngle
		post.PillarName = t.PillarName
	}
	b, err := json.Marshal(voicegen.ExtractPattern(post))
	if err != nil {
		return nil
	}
	return b
}

func (l *engagementFeedbackLoop) GetPerformance(ctx context.Context, draftID uuid.UUID) (*content.PerformanceRecord, error) {
	const op = "Performance.Get"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	rec, err := l.deps.Performance.GetByDraftID(dbctx.Context{Ctx: ctx, Tx: l.deps.DB}, userID, draftID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound(op, "performance record")
	}
	return rec, nil
}
