package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
	"github.com/yungbote/postvoice-backend/internal/platform/redislock"
)

var tracer = otel.Tracer("postvoice/services")

type Generator interface {
	Generate(ctx context.Context, in voicegen.GenerateInput) (*voicegen.GenerationResult, error)
}

type GenerateDraftsInput struct {
	TopicID     uuid.UUID
	Styles      []voicegen.StyleSpec
	Count       int
	Perspective string
}

type DraftSetResult struct {
	TopicID  uuid.UUID
	Drafts   []*content.GeneratedDraft
	Replaced int64
	Meta     voicegen.CallMeta
}

// RegenerationCoordinator runs generate-then-swap for a topic: quota and
// voice checks, a per-topic lock, full generation, then one transaction that
// replaces the topic's draft-status rows. Usage is counted after commit.
type RegenerationCoordinator interface {
	Generate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error)
	Regenerate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error)
}

type RegenerationDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Config    voicegen.Config
	Examples  repos.VoiceExampleRepo
	Profiles  repos.VoiceProfileRepo
	Pillars   repos.PillarRepo
	Topics    repos.ClassifiedTopicRepo
	Patterns  repos.WinningPatternRepo
	DraftSet  aggregates.DraftSetAggregate
	Generator Generator
	Usage     UsageService
	Locker    redislock.Locker
	Metrics   *observability.Metrics
	Clock     Clock
}

type regenerationCoordinator struct {
	deps RegenerationDeps
	log  *logger.Logger
}

func NewRegenerationCoordinator(deps RegenerationDeps) RegenerationCoordinator {
	if deps.Locker == nil {
		deps.Locker = redislock.NewLocalLocker()
	}
	return &regenerationCoordinator{deps: deps, log: deps.Log.With("service", "RegenerationCoordinator")}
}

func (c *regenerationCoordinator) Generate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error) {
	return c.run(ctx, "Drafts.Generate", content.UsageActionGeneration, in)
}

func (c *regenerationCoordinator) Regenerate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error) {
	return c.run(ctx, "Drafts.Regenerate", content.UsageActionRegeneration, in)
}

func (c *regenerationCoordinator) run(ctx context.Context, op, action string, in GenerateDraftsInput) (*DraftSetResult, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("topic_id", in.TopicID.String()), attribute.String("action", action))

	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if in.TopicID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "topic id is required")
	}
	out, err := c.generateAndSwap(ctx, op, action, userID, in)
	if err != nil {
		span.RecordError(err)
		c.deps.Metrics.IncRegeneration(outcomeOf(err))
		return nil, err
	}
	c.deps.Metrics.IncRegeneration("success")
	return out, nil
}

func (c *regenerationCoordinator) generateAndSwap(ctx context.Context, op, action string, userID uuid.UUID, in GenerateDraftsInput) (*DraftSetResult, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: c.deps.DB}

	// The quota check and the post-swap increment must not interleave with
	// another run of the same action for this user. Lock order is usage then topic.
	releaseUsage, err := c.deps.Locker.Lock(ctx, usageLockKey(userID, action))
	if err != nil {
		return nil, apperr.Dependency(op, true, err)
	}
	defer releaseUsage()

	if _, err := c.deps.Usage.Require(ctx, userID, action); err != nil {
		return nil, err
	}

	examples, err := c.deps.Examples.ListActive(dbc, userID)
	if err != nil {
		return nil, err
	}
	profile, err := c.deps.Profiles.GetByOwner(dbc, userID)
	if err != nil {
		return nil, err
	}
	if len(examples) < c.deps.Config.Voice.MinExamples || !profile.Trained() {
		return nil, apperr.New(apperr.CodePreconditionFailed, op,
			fmt.Sprintf("voice needs %d active examples and a trained profile", c.deps.Config.Voice.MinExamples),
			apperr.ErrVoiceNotTrained)
	}

	topic, err := c.deps.Topics.GetByID(dbc, userID, in.TopicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, apperr.NotFound(op, "topic")
	}
	if topic.Status == content.TopicArchived {
		return nil, apperr.Validation(op, nil, "topic is archived")
	}
	pillar, err := c.deps.Pillars.GetByID(dbc, userID, topic.PillarID)
	if err != nil {
		return nil, err
	}
	if pillar == nil {
		return nil, apperr.NotFound(op, "pillar")
	}

	release, err := c.deps.Locker.Lock(ctx, "topic:"+topic.ID.String())
	if err != nil {
		return nil, apperr.Dependency(op, true, err)
	}
	defer release()

	genIn := voicegen.GenerateInput{
		Topic: voicegen.TopicContext{
			ID:        topic.ID,
			Content:   topic.Content,
			HookAngle: topic.HookAngle,
			Tags:      content.DecodeStrings(topic.Tags),
		},
		Pillar:        voicegen.PillarContextOf(pillar),
		VoiceExamples: exampleTexts(examples),
		MasterVector:  profile.Vector(),
		Styles:        in.Styles,
		Count:         in.Count,
		Perspective:   strings.TrimSpace(in.Perspective),
		Patterns:      c.loadPatterns(dbc, userID),
	}
	gen, err := c.deps.Generator.Generate(ctx, genIn)
	if err != nil {
		c.log.Warn("Generation failed; existing drafts kept", "topic_id", topic.ID, "error", err)
		return nil, err
	}

	now := c.deps.Clock.now()
	drafts := make([]*content.GeneratedDraft, 0, len(gen.Variants))
	for _, v := range gen.Variants {
		drafts = append(drafts, draftFromVariant(userID, topic, v, now))
	}
	res, err := c.deps.DraftSet.Replace(ctx, aggregates.ReplaceDraftSetInput{
		OwnerUserID: userID,
		TopicID:     topic.ID,
		Drafts:      drafts,
	})
	if err != nil {
		return nil, err
	}

	if err := c.deps.Usage.Increment(ctx, userID, action, 1); err != nil {
		c.log.Error("Usage increment failed after draft swap", "owner_user_id", userID, "action", action, "error", err)
	}
	c.log.Info("Draft set replaced",
		"topic_id", topic.ID,
		"action", action,
		"deleted", res.Deleted,
		"inserted", len(res.Inserted),
		"tokens_in", gen.Meta.TokensIn,
		"tokens_out", gen.Meta.TokensOut,
	)
	return &DraftSetResult{
		TopicID:  topic.ID,
		Drafts:   res.Inserted,
		Replaced: res.Deleted,
		Meta:     gen.Meta,
	}, nil
}

func usageLockKey(userID uuid.UUID, action string) string {
	return "usage:" + userID.String() + ":" + action
}

func (c *regenerationCoordinator) loadPatterns(dbc dbctx.Context, userID uuid.UUID) *voicegen.PatternSummary {
	if c.deps.Patterns == nil {
		return nil
	}
	row, err := c.deps.Patterns.GetByOwner(dbc, userID)
	if err != nil {
		c.log.Warn("Winning pattern lookup failed", "owner_user_id", userID, "error", err)
		return nil
	}
	if row == nil || len(row.Summary) == 0 {
		return nil
	}
	var ps voicegen.PatternSummary
	if err := json.Unmarshal(row.Summary, &ps); err != nil {
		c.log.Warn("Winning pattern summary unreadable", "owner_user_id", userID, "error", err)
		return nil
	}
	return &ps
}

func exampleTexts(rows []*content.VoiceExample) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Text)
	}
	return out
}

func draftFromVariant(userID uuid.UUID, topic *content.ClassifiedTopic, v voicegen.Variant, now time.Time) *content.GeneratedDraft {
	return &content.GeneratedDraft{
		OwnerUserID:         userID,
		TopicID:             topic.ID,
		PillarID:            topic.PillarID,
		VariantLabel:        v.Label,
		Style:               v.Style,
		FullText:            v.FullText,
		Hook:                v.Hook,
		Body:                v.Body,
		CallToAction:        v.CallToAction,
		Tags:                content.EncodeStrings(v.Tags),
		CharCount:           v.CharCount,
		VoiceMatchScore:     v.VoiceMatchScore,
		EstimatedEngagement: v.EstimatedEngagement,
		QualityWarnings:     content.EncodeStrings(v.Warnings),
		Flagged:             v.Flagged,
		Status:              content.DraftStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func outcomeOf(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeQuotaExceeded:
		return "quota_exceeded"
	case apperr.CodePreconditionFailed:
		return "voice_not_trained"
	case apperr.CodeValidation, apperr.CodeNotFound:
		return "rejected"
	case apperr.CodeRetryable, apperr.CodeDependency:
		return "generation_failed"
	default:
		return "error"
	}
}
