package services

import (
	"errors"
	"testing"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos/testutil"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

func newPillarService(t *testing.T, h *harness) PillarService {
	t.Helper()
	log := testutil.Logger(t)
	agg := aggregates.NewPillarAggregate(aggregates.PillarAggregateDeps{
		Base:    aggregates.BaseDeps{DB: h.db, Log: log},
		Pillars: h.repos.Pillars,
	})
	return NewPillarService(h.db, log, h.repos.Pillars, agg, nil)
}

func TestPillarService_NormalizedNameIsUnique(t *testing.T) {
	h := newHarness(t, nil)
	svc := newPillarService(t, h)
	if _, err := svc.Create(h.ctx, PillarInput{Name: "AI Innovation", Description: "AI at work"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(h.ctx, PillarInput{Name: "  ai-innovation!"})
	wantCode(t, err, apperr.CodeConflict)
	if !errors.Is(err, apperr.ErrDuplicatePillar) {
		t.Fatalf("want ErrDuplicatePillar, got %v", err)
	}
	if _, err := svc.Create(h.ctx, PillarInput{Name: "Leadership"}); err != nil {
		t.Fatalf("Create second: %v", err)
	}
}

func TestPillarService_UpdateRenameCollides(t *testing.T) {
	h := newHarness(t, nil)
	svc := newPillarService(t, h)
	a, err := svc.Create(h.ctx, PillarInput{Name: "AI Innovation"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(h.ctx, PillarInput{Name: "Leadership"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.Update(h.ctx, a.ID, PillarInput{Name: "LEADERSHIP"})
	wantCode(t, err, apperr.CodeConflict)

	got, err := svc.Update(h.ctx, a.ID, PillarInput{Name: "AI Innovation", Tone: "curious", Status: content.PillarStatusInactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Tone != "curious" || got.Status != content.PillarStatusInactive {
		t.Fatalf("update: want curious/inactive got=%s/%s", got.Tone, got.Status)
	}
	active, err := svc.List(h.ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active pillars: want=1 got=%d", len(active))
	}
}

func TestPillarService_DeleteWithDependentsRejected(t *testing.T) {
	h := newHarness(t, nil)
	svc := newPillarService(t, h)
	topic := h.seedReadyTopic(t, 0)

	err := svc.Delete(h.ctx, topic.PillarID)
	wantCode(t, err, apperr.CodeConflict)
	if !errors.Is(err, apperr.ErrPillarInUse) {
		t.Fatalf("want ErrPillarInUse, got %v", err)
	}

	empty, err := svc.Create(h.ctx, PillarInput{Name: "Unused"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(h.ctx, empty.ID); err != nil {
		t.Fatalf("Delete unused: %v", err)
	}
	_, err = svc.Get(h.ctx, empty.ID)
	wantCode(t, err, apperr.CodeNotFound)
}
