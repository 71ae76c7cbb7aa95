package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type DraftService interface {
	Generate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error)
	Regenerate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error)
	Get(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error)
	List(ctx context.Context, filter repos.DraftFilter) ([]*content.GeneratedDraft, error)
	Approve(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error)
	Reject(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error)
	Schedule(ctx context.Context, draftID uuid.UUID, at time.Time) (*content.GeneratedDraft, error)
	Delete(ctx context.Context, draftID uuid.UUID) error
}

type draftService struct {
	db          *gorm.DB
	log         *logger.Logger
	drafts      repos.GeneratedDraftRepo
	draftSet    aggregates.DraftSetAggregate
	coordinator RegenerationCoordinator
	clock       Clock
}

func NewDraftService(db *gorm.DB, baseLog *logger.Logger, drafts repos.GeneratedDraftRepo, draftSet aggregates.DraftSetAggregate, coordinator RegenerationCoordinator, clock Clock) DraftService {
	return &draftService{
		db:          db,
		log:         baseLog.With("service", "DraftService"),
		drafts:      drafts,
		draftSet:    draftSet,
		coordinator: coordinator,
		clock:       clock,
	}
}

func (s *draftService) Generate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error) {
	return s.coordinator.Generate(ctx, in)
}

func (s *draftService) Regenerate(ctx context.Context, in GenerateDraftsInput) (*DraftSetResult, error) {
	return s.coordinator.Regenerate(ctx, in)
}

func (s *draftService) Get(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error) {
	const op = "Drafts.Get"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	d, err := s.drafts.GetByID(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, draftID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound(op, "draft")
	}
	return d, nil
}

func (s *draftService) List(ctx context.Context, filter repos.DraftFilter) ([]*content.GeneratedDraft, error) {
	userID, err := requestUserID(ctx, "Drafts.List")
	if err != nil {
		return nil, err
	}
	return s.drafts.List(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, filter)
}

func (s *draftService) Approve(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error) {
	return s.transition(ctx, "Drafts.Approve", draftID, content.DraftStatusApproved, nil)
}

func (s *draftService) Reject(ctx context.Context, draftID uuid.UUID) (*content.GeneratedDraft, error) {
	return s.transition(ctx, "Drafts.Reject", draftID, content.DraftStatusRejected, nil)
}

func (s *draftService) Schedule(ctx context.Context, draftID uuid.UUID, at time.Time) (*content.GeneratedDraft, error) {
	if at.IsZero() {
		return nil, apperr.Validation("Drafts.Schedule", nil, "scheduled time is required")
	}
	return s.transition(ctx, "Drafts.Schedule", draftID, content.DraftStatusScheduled, &at)
}

func (s *draftService) transition(ctx context.Context, op string, draftID uuid.UUID, to content.DraftStatus, at *time.Time) (*content.GeneratedDraft, error) {
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	d, err := s.draftSet.Transition(ctx, aggregates.TransitionDraftInput{
		OwnerUserID:  userID,
		DraftID:      draftID,
		To:           to,
		ScheduledFor: at,
		Now:          s.clock.now(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("Draft transitioned", "draft_id", draftID, "to", to)
	return d, nil
}

func (s *draftService) Delete(ctx context.Context, draftID uuid.UUID) error {
	userID, err := requestUserID(ctx, "Drafts.Delete")
	if err != nil {
		return err
	}
	return s.draftSet.Delete(ctx, userID, draftID)
}
