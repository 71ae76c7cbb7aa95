package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos/testutil"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

func TestCASGuard_MoveDraft(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "guarded")
	d := testutil.SeedDrafts(t, ctx, db, topic, 1, "cas")[0]

	g := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: ctx}
	if err := d.ApplyTransition(content.DraftStatusApproved, time.Now(), nil); err != nil {
		t.Fatalf("transition: %v", err)
	}

	// stored row is still draft, so a writer claiming it read approved loses
	err := g.MoveDraft(dbc, d, content.DraftStatusApproved)
	if !errors.Is(err, apperr.ErrStaleWrite) || !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("stale move: want conflict got=%v", err)
	}
	if err := g.MoveDraft(dbc, d, content.DraftStatusDraft); err != nil {
		t.Fatalf("move: %v", err)
	}

	var stored content.GeneratedDraft
	if err := db.First(&stored, "id = ?", d.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != content.DraftStatusApproved || stored.ApprovedAt == nil {
		t.Fatalf("stored: want approved with timestamp got=%s %v", stored.Status, stored.ApprovedAt)
	}
	if err := g.MoveDraft(dbc, d, content.DraftStatusDraft); !errors.Is(err, apperr.ErrStaleWrite) {
		t.Fatalf("second move from draft: want stale got=%v", err)
	}
}
