package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

type PillarAggregateDeps struct {
	Base BaseDeps

	Pillars repos.PillarRepo
}

type PillarAggregate interface {
	// Delete rejects pillars that still have topics or drafts.
	Delete(ctx context.Context, ownerUserID, pillarID uuid.UUID) error
}

type pillarAggregate struct {
	deps PillarAggregateDeps
}

func NewPillarAggregate(deps PillarAggregateDeps) PillarAggregate {
	deps.Base = deps.Base.withDefaults()
	return &pillarAggregate{deps: deps}
}

func (a *pillarAggregate) Delete(ctx context.Context, ownerUserID, pillarID uuid.UUID) error {
	const op = "Content.Pillar.Delete"
	if a.deps.Pillars == nil {
		return apperr.New(apperr.CodeInternal, op, "pillar aggregate repos not configured", nil)
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		p, err := a.deps.Pillars.GetByID(dbc, ownerUserID, pillarID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFound(op, "pillar")
		}
		n, err := a.deps.Pillars.CountDependents(dbc, ownerUserID, pillarID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.New(apperr.CodeConflict, op, fmt.Sprintf("%d dependents reference %q", n, p.Name), apperr.ErrPillarInUse)
		}
		_, err = a.deps.Pillars.Delete(dbc, ownerUserID, pillarID)
		return err
	})
}
