package content

import (
	"errors"
	"testing"
	"time"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

func TestDraftTransitionsFollowStateMachine(t *testing.T) {
	cases := []struct {
		from, to DraftStatus
		ok       bool
	}{
		{DraftStatusDraft, DraftStatusApproved, true},
		{DraftStatusDraft, DraftStatusRejected, true},
		{DraftStatusDraft, DraftStatusPosted, false},
		{DraftStatusDraft, DraftStatusScheduled, false},
		{DraftStatusApproved, DraftStatusScheduled, true},
		{DraftStatusApproved, DraftStatusPosted, true},
		{DraftStatusScheduled, DraftStatusPosted, true},
		{DraftStatusRejected, DraftStatusApproved, false},
		{DraftStatusPosted, DraftStatusDraft, false},
		{DraftStatusPosted, DraftStatusApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransitionDraft(tc.from, tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: want=%v got=%v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestApplyTransitionRejectsDraftToPosted(t *testing.T) {
	d := &GeneratedDraft{Status: DraftStatusDraft}
	err := d.ApplyTransition(DraftStatusPosted, time.Now(), nil)
	if !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if d.Status != DraftStatusDraft {
		t.Fatalf("status mutated on failure: %s", d.Status)
	}
	if d.PostedAt != nil {
		t.Fatalf("posted_at set on failure")
	}
}

func TestApplyTransitionStampsTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := &GeneratedDraft{Status: DraftStatusDraft}
	if err := d.ApplyTransition(DraftStatusApproved, now, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if d.ApprovedAt == nil || !d.ApprovedAt.Equal(now) {
		t.Fatalf("approved_at: want=%v got=%v", now, d.ApprovedAt)
	}

	past := now.Add(-time.Hour)
	if err := d.ApplyTransition(DraftStatusScheduled, now, &past); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("schedule in past: expected validation error, got %v", err)
	}
	future := now.Add(24 * time.Hour)
	if err := d.ApplyTransition(DraftStatusScheduled, now, &future); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if d.ScheduledFor == nil || !d.ScheduledFor.Equal(future) {
		t.Fatalf("scheduled_for: want=%v got=%v", future, d.ScheduledFor)
	}
	if err := d.ApplyTransition(DraftStatusPosted, now, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
	if d.Status != DraftStatusPosted || d.PostedAt == nil {
		t.Fatalf("expected posted with timestamp, got status=%s posted_at=%v", d.Status, d.PostedAt)
	}
}

func TestPostedDraftCannotBeDeleted(t *testing.T) {
	for _, s := range []DraftStatus{DraftStatusDraft, DraftStatusApproved, DraftStatusRejected, DraftStatusScheduled} {
		d := &GeneratedDraft{Status: s}
		if err := d.CanDelete(); err != nil {
			t.Fatalf("delete from %s: unexpected error %v", s, err)
		}
	}
	d := &GeneratedDraft{Status: DraftStatusPosted}
	if err := d.CanDelete(); !errors.Is(err, apperr.ErrPostedImmutable) {
		t.Fatalf("delete posted: expected ErrPostedImmutable, got %v", err)
	}
}

func TestCheckCharCountUsesRunes(t *testing.T) {
	d := &GeneratedDraft{FullText: "héllo 👋", CharCount: 7}
	if err := d.CheckCharCount(); err != nil {
		t.Fatalf("CheckCharCount: %v", err)
	}
	d.CharCount = len(d.FullText)
	err := d.CheckCharCount()
	if !apperr.IsCode(err, apperr.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}
