package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// UsageLimits maps an action to its monthly allowance. Missing or
// non-positive entries are unlimited.
type UsageLimits map[string]int

type QuotaDecision struct {
	Allowed bool
	Reason  string
	Action  string
	Period  string
	Used    int
	Limit   int
}

// UsageService is the quota collaborator the generation flows consult before
// spending model calls.
type UsageService interface {
	Check(ctx context.Context, ownerUserID uuid.UUID, action string) (QuotaDecision, error)
	// Require is Check that fails with a quota_exceeded error when denied.
	Require(ctx context.Context, ownerUserID uuid.UUID, action string) (QuotaDecision, error)
	Increment(ctx context.Context, ownerUserID uuid.UUID, action string, amount int) error
	SummaryForRequestUser(ctx context.Context) ([]QuotaDecision, error)
}

type usageService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.UsageCounterRepo
	limits UsageLimits
	clock  Clock
}

func NewUsageService(db *gorm.DB, baseLog *logger.Logger, repo repos.UsageCounterRepo, limits UsageLimits, clock Clock) UsageService {
	if limits == nil {
		limits = UsageLimits{}
	}
	return &usageService{
		db:     db,
		log:    baseLog.With("service", "UsageService"),
		repo:   repo,
		limits: limits,
		clock:  clock,
	}
}

func (s *usageService) Check(ctx context.Context, ownerUserID uuid.UUID, action string) (QuotaDecision, error) {
	period := content.UsagePeriod(s.clock.now())
	out := QuotaDecision{Allowed: true, Action: action, Period: period, Limit: s.limits[action]}
	if ownerUserID == uuid.Nil || action == "" {
		return out, apperr.Validation("Usage.Check", nil, "owner and action are required")
	}
	used, err := s.repo.Get(dbctx.Context{Ctx: ctx, Tx: s.db}, ownerUserID, action, period)
	if err != nil {
		return out, apperr.Wrap(apperr.CodeInternal, "Usage.Check", err)
	}
	out.Used = used
	if out.Limit > 0 && used >= out.Limit {
		out.Allowed = false
		out.Reason = fmt.Sprintf("%s limit of %d reached for %s", action, out.Limit, period)
	}
	return out, nil
}

func (s *usageService) Require(ctx context.Context, ownerUserID uuid.UUID, action string) (QuotaDecision, error) {
	d, err := s.Check(ctx, ownerUserID, action)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		s.log.Info("Quota exceeded", "owner_user_id", ownerUserID, "action", action, "used", d.Used, "limit", d.Limit)
		return d, apperr.New(apperr.CodeQuotaExceeded, "Usage.Require", d.Reason, apperr.ErrQuotaExceeded)
	}
	return d, nil
}

func (s *usageService) Increment(ctx context.Context, ownerUserID uuid.UUID, action string, amount int) error {
	if amount <= 0 {
		return nil
	}
	period := content.UsagePeriod(s.clock.now())
	return s.repo.Increment(dbctx.Context{Ctx: ctx, Tx: s.db}, ownerUserID, action, period, amount)
}

func (s *usageService) SummaryForRequestUser(ctx context.Context) ([]QuotaDecision, error) {
	userID, err := requestUserID(ctx, "Usage.Summary")
	if err != nil {
		return nil, err
	}
	actions := []string{content.UsageActionGeneration, content.UsageActionRegeneration, content.UsageActionVoiceTrain}
	out := make([]QuotaDecision, 0, len(actions))
	for _, a := range actions {
		d, err := s.Check(ctx, userID, a)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
