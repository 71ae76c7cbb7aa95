package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type Classifier interface {
	Classify(ctx context.Context, topic string, pillars []voicegen.PillarContext, manualApproval bool) (*voicegen.Classification, error)
	ClassifyBatch(ctx context.Context, topics []string, pillars []voicegen.PillarContext, manualApproval bool) ([]*voicegen.Classification, error)
}

type RawTopicInput struct {
	Content   string
	Source    string
	SourceURL string
}

type ClassifyTopicInput struct {
	// Content is used when RawTopicID is unset.
	Content        string
	RawTopicID     *uuid.UUID
	ManualApproval bool
}

type TopicService interface {
	Ingest(ctx context.Context, in []RawTopicInput) ([]*content.RawTopic, error)
	Classify(ctx context.Context, in ClassifyTopicInput) (*content.ClassifiedTopic, error)
	// ClassifyPending classifies up to limit unprocessed raw topics in one
	// batch and stamps them processed.
	ClassifyPending(ctx context.Context, limit int, manualApproval bool) ([]*content.ClassifiedTopic, error)
	Get(ctx context.Context, topicID uuid.UUID) (*content.ClassifiedTopic, error)
	List(ctx context.Context, filter repos.TopicFilter) ([]*content.ClassifiedTopic, error)
	// SetStatus applies a forward move, or any move when override is set.
	SetStatus(ctx context.Context, topicID uuid.UUID, to content.TopicStatus, override bool) (*content.ClassifiedTopic, error)
	Archive(ctx context.Context, topicID uuid.UUID) (*content.ClassifiedTopic, error)
}

type topicService struct {
	db         *gorm.DB
	log        *logger.Logger
	pillars    repos.PillarRepo
	rawTopics  repos.RawTopicRepo
	topics     repos.ClassifiedTopicRepo
	aggregate  aggregates.TopicAggregate
	classifier Classifier
	clock      Clock
}

func NewTopicService(db *gorm.DB, baseLog *logger.Logger, pillars repos.PillarRepo, rawTopics repos.RawTopicRepo, topics repos.ClassifiedTopicRepo, aggregate aggregates.TopicAggregate, classifier Classifier, clock Clock) TopicService {
	return &topicService{
		db:         db,
		log:        baseLog.With("service", "TopicService"),
		pillars:    pillars,
		rawTopics:  rawTopics,
		topics:     topics,
		aggregate:  aggregate,
		classifier: classifier,
		clock:      clock,
	}
}

func (s *topicService) Ingest(ctx context.Context, in []RawTopicInput) ([]*content.RawTopic, error) {
	const op = "Topic.Ingest"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, apperr.Validation(op, nil, "at least one topic is required")
	}
	now := s.clock.now()
	rows := make([]*content.RawTopic, 0, len(in))
	for i, t := range in {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			return nil, apperr.Validation(op, nil, "topic %d is empty", i)
		}
		source := strings.TrimSpace(t.Source)
		if source == "" {
			source = content.TopicSourceManual
		}
		rows = append(rows, &content.RawTopic{
			OwnerUserID: userID,
			Source:      source,
			Content:     text,
			SourceURL:   strings.TrimSpace(t.SourceURL),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	created, err := s.rawTopics.Create(dbctx.Context{Ctx: ctx, Tx: s.db}, rows)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return created, nil
}

func (s *topicService) activePillars(ctx context.Context, userID uuid.UUID) ([]voicegen.PillarContext, error) {
	rows, err := s.pillars.ListByOwner(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, true)
	if err != nil {
		return nil, err
	}
	out := make([]voicegen.PillarContext, 0, len(rows))
	for _, p := range rows {
		out = append(out, voicegen.PillarContextOf(p))
	}
	return out, nil
}

func (s *topicService) Classify(ctx context.Context, in ClassifyTopicInput) (*content.ClassifiedTopic, error) {
	const op = "Topic.Classify"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	var raw *content.RawTopic
	text := strings.TrimSpace(in.Content)
	if in.RawTopicID != nil && *in.RawTopicID != uuid.Nil {
		rows, err := s.rawTopics.GetByIDs(dbc, userID, []uuid.UUID{*in.RawTopicID})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, apperr.NotFound(op, "raw topic")
		}
		raw = rows[0]
		if raw.ProcessedAt != nil {
			return nil, apperr.Conflict(op, apperr.ErrTopicProcessed)
		}
		text = raw.Content
	}
	if text == "" {
		return nil, apperr.Validation(op, nil, "topic content is empty")
	}
	pillars, err := s.activePillars(ctx, userID)
	if err != nil {
		return nil, err
	}
	cl, err := s.classifier.Classify(ctx, text, pillars, in.ManualApproval)
	if err != nil {
		return nil, err
	}
	topic := s.topicFrom(userID, raw, text, cl)
	if err := s.record(ctx, userID, []*content.ClassifiedTopic{topic}); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *topicService) ClassifyPending(ctx context.Context, limit int, manualApproval bool) ([]*content.ClassifiedTopic, error) {
	const op = "Topic.ClassifyPending"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	raws, err := s.rawTopics.ListUnprocessed(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return []*content.ClassifiedTopic{}, nil
	}
	pillars, err := s.activePillars(ctx, userID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(raws))
	for i, r := range raws {
		texts[i] = r.Content
	}
	cls, err := s.classifier.ClassifyBatch(ctx, texts, pillars, manualApproval)
	if err != nil {
		return nil, err
	}
	out := make([]*content.ClassifiedTopic, len(raws))
	for i, r := range raws {
		out[i] = s.topicFrom(userID, r, r.Content, cls[i])
	}
	if err := s.record(ctx, userID, out); err != nil {
		return nil, err
	}
	s.log.Info("Classified pending topics", "owner_user_id", userID, "count", len(out))
	return out, nil
}

func (s *topicService) topicFrom(userID uuid.UUID, raw *content.RawTopic, text string, cl *voicegen.Classification) *content.ClassifiedTopic {
	now := s.clock.now()
	t := &content.ClassifiedTopic{
		OwnerUserID: userID,
		PillarID:    cl.PillarID,
		PillarName:  cl.PillarName,
		Content:     text,
		Confidence:  cl.Confidence,
		Relevance:   cl.Relevance,
		Reasoning:   cl.Reasoning,
		HookAngle:   cl.HookAngle,
		Tags:        content.EncodeStrings(cl.Tags),
		Status:      cl.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if raw != nil {
		id := raw.ID
		t.RawTopicID = &id
	}
	return t
}

func (s *topicService) record(ctx context.Context, userID uuid.UUID, topics []*content.ClassifiedTopic) error {
	return s.aggregate.RecordClassifications(ctx, aggregates.RecordClassificationsInput{
		OwnerUserID: userID,
		Topics:      topics,
		Now:         s.clock.now(),
	})
}

func (s *topicService) Get(ctx context.Context, topicID uuid.UUID) (*content.ClassifiedTopic, error) {
	const op = "Topic.Get"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	t, err := s.topics.GetByID(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, topicID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound(op, "topic")
	}
	return t, nil
}

func (s *topicService) List(ctx context.Context, filter repos.TopicFilter) ([]*content.ClassifiedTopic, error) {
	userID, err := requestUserID(ctx, "Topic.List")
	if err != nil {
		return nil, err
	}
	if filter.Status != "" && !content.ValidTopicStatus(filter.Status) {
		return nil, apperr.Validation("Topic.List", nil, "unknown topic status %q", filter.Status)
	}
	return s.topics.List(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, filter)
}

func (s *topicService) SetStatus(ctx context.Context, topicID uuid.UUID, to content.TopicStatus, override bool) (*content.ClassifiedTopic, error) {
	const op = "Topic.SetStatus"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	t, err := s.topics.GetByID(dbc, userID, topicID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound(op, "topic")
	}
	if err := content.CheckTopicTransition(t.Status, to, override); err != nil {
		return nil, err
	}
	if t.Status == to {
		return t, nil
	}
	ok, err := s.topics.UpdateStatusFrom(dbc, userID, topicID, t.Status, to)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if !ok {
		return nil, apperr.Conflict(op, apperr.ErrStaleWrite)
	}
	s.log.Info("Topic status changed", "topic_id", topicID, "from", t.Status, "to", to, "override", override)
	t.Status = to
	t.UpdatedAt = s.clock.now()
	return t, nil
}

func (s *topicService) Archive(ctx context.Context, topicID uuid.UUID) (*content.ClassifiedTopic, error) {
	return s.SetStatus(ctx, topicID, content.TopicArchived, false)
}
