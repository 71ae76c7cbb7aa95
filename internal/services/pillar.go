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
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type PillarInput struct {
	Name               string
	Description        string
	Tone               string
	Audience           string
	CustomInstructions string
	// Status is only honoured on update; new pillars start active.
	Status string
}

type PillarService interface {
	Create(ctx context.Context, in PillarInput) (*content.Pillar, error)
	Update(ctx context.Context, pillarID uuid.UUID, in PillarInput) (*content.Pillar, error)
	Get(ctx context.Context, pillarID uuid.UUID) (*content.Pillar, error)
	List(ctx context.Context, activeOnly bool) ([]*content.Pillar, error)
	Delete(ctx context.Context, pillarID uuid.UUID) error
}

type pillarService struct {
	db        *gorm.DB
	log       *logger.Logger
	pillars   repos.PillarRepo
	aggregate aggregates.PillarAggregate
	clock     Clock
}

func NewPillarService(db *gorm.DB, baseLog *logger.Logger, pillars repos.PillarRepo, aggregate aggregates.PillarAggregate, clock Clock) PillarService {
	return &pillarService{
		db:        db,
		log:       baseLog.With("service", "PillarService"),
		pillars:   pillars,
		aggregate: aggregate,
		clock:     clock,
	}
}

func (s *pillarService) Create(ctx context.Context, in PillarInput) (*content.Pillar, error) {
	const op = "Pillar.Create"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	normalized := content.NormalizePillarName(name)
	if normalized == "" {
		return nil, apperr.Validation(op, nil, "pillar name is required")
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	taken, err := s.pillars.NameTaken(dbc, userID, normalized, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict(op, apperr.ErrDuplicatePillar)
	}
	now := s.clock.now()
	p := &content.Pillar{
		OwnerUserID:        userID,
		Name:               name,
		Description:        strings.TrimSpace(in.Description),
		Tone:               strings.TrimSpace(in.Tone),
		Audience:           strings.TrimSpace(in.Audience),
		CustomInstructions: strings.TrimSpace(in.CustomInstructions),
		Status:             content.PillarStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.pillars.Create(dbc, p); err != nil {
		// the unique index catches a concurrent create with the same name
		return nil, duplicatePillar(op, err)
	}
	s.log.Debug("Pillar created", "pillar_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *pillarService) Update(ctx context.Context, pillarID uuid.UUID, in PillarInput) (*content.Pillar, error) {
	const op = "Pillar.Update"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	p, err := s.pillars.GetByID(dbc, userID, pillarID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(op, "pillar")
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != p.Name {
		normalized := content.NormalizePillarName(name)
		if normalized == "" {
			return nil, apperr.Validation(op, nil, "pillar name is required")
		}
		taken, err := s.pillars.NameTaken(dbc, userID, normalized, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict(op, apperr.ErrDuplicatePillar)
		}
		p.Name = name
	}
	p.Description = strings.TrimSpace(in.Description)
	p.Tone = strings.TrimSpace(in.Tone)
	p.Audience = strings.TrimSpace(in.Audience)
	p.CustomInstructions = strings.TrimSpace(in.CustomInstructions)
	switch in.Status {
	case "":
	case content.PillarStatusActive, content.PillarStatusInactive:
		p.Status = in.Status
	default:
		return nil, apperr.Validation(op, nil, "unknown pillar status %q", in.Status)
	}
	p.UpdatedAt = s.clock.now()
	if err := s.pillars.Save(dbc, p); err != nil {
		return nil, duplicatePillar(op, err)
	}
	return p, nil
}

func (s *pillarService) Get(ctx context.Context, pillarID uuid.UUID) (*content.Pillar, error) {
	const op = "Pillar.Get"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	p, err := s.pillars.GetByID(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, pillarID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(op, "pillar")
	}
	return p, nil
}

func (s *pillarService) List(ctx context.Context, activeOnly bool) ([]*content.Pillar, error) {
	userID, err := requestUserID(ctx, "Pillar.List")
	if err != nil {
		return nil, err
	}
	return s.pillars.ListByOwner(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, activeOnly)
}

func (s *pillarService) Delete(ctx context.Context, pillarID uuid.UUID) error {
	userID, err := requestUserID(ctx, "Pillar.Delete")
	if err != nil {
		return err
	}
	return s.aggregate.Delete(ctx, userID, pillarID)
}

func duplicatePillar(op string, err error) error {
	mapped := aggregates.MapError(op, err)
	if apperr.IsCode(mapped, apperr.CodeConflict) {
		return apperr.Conflict(op, apperr.ErrDuplicatePillar)
	}
	return mapped
}
