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

type DraftSetAggregateDeps struct {
	Base BaseDeps

	Topics repos.ClassifiedTopicRepo
	Drafts repos.GeneratedDraftRepo
}

type ReplaceDraftSetInput struct {
	OwnerUserID uuid.UUID
	TopicID     uuid.UUID
	Drafts      []*content.GeneratedDraft
}

type ReplaceDraftSetResult struct {
	Deleted  int64
	Inserted []*content.GeneratedDraft
}

type TransitionDraftInput struct {
	OwnerUserID  uuid.UUID
	DraftID      uuid.UUID
	To           content.DraftStatus
	ScheduledFor *time.Time
	Now          time.Time
}

// DraftSetAggregate owns every write to a topic's generated drafts.
type DraftSetAggregate interface {
	// Replace swaps the topic's draft-status rows for a new set in one
	// transaction. Approved, scheduled and posted rows are left alone.
	Replace(ctx context.Context, in ReplaceDraftSetInput) (ReplaceDraftSetResult, error)
	Transition(ctx context.Context, in TransitionDraftInput) (*content.GeneratedDraft, error)
	Delete(ctx context.Context, ownerUserID, draftID uuid.UUID) error
}

type draftSetAggregate struct {
	deps DraftSetAggregateDeps
}

func NewDraftSetAggregate(deps DraftSetAggregateDeps) DraftSetAggregate {
	deps.Base = deps.Base.withDefaults()
	return &draftSetAggregate{deps: deps}
}

func (a *draftSetAggregate) Replace(ctx context.Context, in ReplaceDraftSetInput) (ReplaceDraftSetResult, error) {
	const op = "Content.DraftSet.Replace"
	var out ReplaceDraftSetResult
	if in.OwnerUserID == uuid.Nil || in.TopicID == uuid.Nil {
		return out, apperr.Validation(op, nil, "owner and topic are required")
	}
	if len(in.Drafts) == 0 {
		return out, apperr.Validation(op, nil, "a draft set needs at least one variant")
	}
	if a.deps.Topics == nil || a.deps.Drafts == nil {
		return out, apperr.New(apperr.CodeInternal, op, "draft set aggregate repos not configured", nil)
	}
	for i, d := range in.Drafts {
		if d == nil {
			return out, apperr.Validation(op, nil, "draft %d is nil", i)
		}
		if d.OwnerUserID != in.OwnerUserID || d.TopicID != in.TopicID {
			return out, apperr.Invariant(op, nil, "draft %s does not belong to topic %s", d.VariantLabel, in.TopicID)
		}
		if err := d.CheckCharCount(); err != nil {
			return out, err
		}
		d.Status = content.DraftStatusDraft
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		topic, err := a.deps.Topics.GetByID(dbc, in.OwnerUserID, in.TopicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return apperr.NotFound(op, "topic")
		}
		deleted, err := a.deps.Drafts.DeleteByTopicStatus(dbc, in.OwnerUserID, in.TopicID, content.DraftStatusDraft)
		if err != nil {
			return err
		}
		inserted, err := a.deps.Drafts.Create(dbc, in.Drafts)
		if err != nil {
			return err
		}
		out = ReplaceDraftSetResult{Deleted: deleted, Inserted: inserted}
		return nil
	})
	if err != nil {
		return ReplaceDraftSetResult{}, err
	}
	a.deps.Base.Log.Debug("draft set replaced",
		"topic_id", in.TopicID,
		"deleted", out.Deleted,
		"inserted", len(out.Inserted),
	)
	return out, nil
}

func (a *draftSetAggregate) Transition(ctx context.Context, in TransitionDraftInput) (*content.GeneratedDraft, error) {
	const op = "Content.DraftSet.Transition"
	if in.OwnerUserID == uuid.Nil || in.DraftID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "owner and draft are required")
	}
	if in.To == content.DraftStatusPosted {
		return nil, apperr.Validation(op, nil, "drafts are marked posted by recording their performance")
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}

	var out *content.GeneratedDraft
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		d, err := a.deps.Drafts.GetByID(dbc, in.OwnerUserID, in.DraftID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.NotFound(op, "draft")
		}
		from := d.Status
		if err := d.ApplyTransition(in.To, now, in.ScheduledFor); err != nil {
			return err
		}
		if err := a.deps.Base.CASGuard.MoveDraft(dbc, d, from); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *draftSetAggregate) Delete(ctx context.Context, ownerUserID, draftID uuid.UUID) error {
	const op = "Content.DraftSet.Delete"
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		d, err := a.deps.Drafts.GetByID(dbc, ownerUserID, draftID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.NotFound(op, "draft")
		}
		if err := d.CanDelete(); err != nil {
			return err
		}
		ok, err := a.deps.Drafts.DeleteUnlessStatus(dbc, ownerUserID, draftID, content.DraftStatusPosted)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CodeConflict, op, "", apperr.ErrPostedImmutable)
		}
		return nil
	})
}

func draftTransitionUpdates(d *content.GeneratedDraft) map[string]any {
	updates := map[string]any{
		"status":     d.Status,
		"updated_at": d.UpdatedAt,
	}
	switch d.Status {
	case content.DraftStatusApproved:
		updates["approved_at"] = d.ApprovedAt
	case content.DraftStatusRejected:
		updates["rejected_at"] = d.RejectedAt
	case content.DraftStatusScheduled:
		updates["scheduled_for"] = d.ScheduledFor
		updates["scheduled_at"] = d.ScheduledAt
	case content.DraftStatusPosted:
		updates["posted_at"] = d.PostedAt
	}
	return updates
}
