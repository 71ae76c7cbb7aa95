package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

type PerformanceAggregateDeps struct {
	Base BaseDeps

	Drafts      repos.GeneratedDraftRepo
	Performance repos.PerformanceRecordRepo
}

type RecordPerformanceInput struct {
	OwnerUserID uuid.UUID
	Record      *content.PerformanceRecord
	Now         time.Time
}

type RecordPerformanceResult struct {
	Record *content.PerformanceRecord
	Draft  *content.GeneratedDraft
	// Updated is true when the draft already had a record.
	Updated bool
}

// PerformanceAggregate writes a performance record and marks its draft
// posted in the same transaction.
type PerformanceAggregate interface {
	Record(ctx context.Context, in RecordPerformanceInput) (RecordPerformanceResult, error)
}

type performanceAggregate struct {
	deps PerformanceAggregateDeps
}

func NewPerformanceAggregate(deps PerformanceAggregateDeps) PerformanceAggregate {
	deps.Base = deps.Base.withDefaults()
	return &performanceAggregate{deps: deps}
}

func (a *performanceAggregate) Record(ctx context.Context, in RecordPerformanceInput) (RecordPerformanceResult, error) {
	const op = "Content.Performance.Record"
	var out RecordPerformanceResult
	if in.OwnerUserID == uuid.Nil || in.Record == nil || in.Record.DraftID == uuid.Nil {
		return out, apperr.Validation(op, nil, "owner and draft are required")
	}
	if a.deps.Drafts == nil || a.deps.Performance == nil {
		return out, apperr.New(apperr.CodeInternal, op, "performance aggregate repos not configured", nil)
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}
	rec := in.Record
	rec.OwnerUserID = in.OwnerUserID
	if rec.MeasuredAt.IsZero() {
		rec.MeasuredAt = now
	}
	rec.UpdatedAt = now

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		d, err := a.deps.Drafts.GetByID(dbc, in.OwnerUserID, rec.DraftID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.NotFound(op, "draft")
		}

		if d.Status != content.DraftStatusPosted {
			from := d.Status
			if err := d.ApplyTransition(content.DraftStatusPosted, now, nil); err != nil {
				return err
			}
			if err := a.deps.Base.CASGuard.MoveDraft(dbc, d, from); err != nil {
				return err
			}
		}

		existing, err := a.deps.Performance.GetByDraftID(dbc, in.OwnerUserID, rec.DraftID)
		if err != nil {
			return err
		}
		if err := a.deps.Performance.Upsert(dbc, rec); err != nil {
			return err
		}
		// The conflict update keeps the stored id and created_at.
		if existing != nil {
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		}
		out = RecordPerformanceResult{Record: rec, Draft: d, Updated: existing != nil}
		return nil
	})
	if err != nil {
		return RecordPerformanceResult{}, err
	}
	return out, nil
}
