package content

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusApproved  DraftStatus = "approved"
	DraftStatusRejected  DraftStatus = "rejected"
	DraftStatusScheduled DraftStatus = "scheduled"
	DraftStatusPosted    DraftStatus = "posted"
)

type GeneratedDraft struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	TopicID             uuid.UUID      `gorm:"type:uuid;column:topic_id;not null;index:idx_draft_topic_status,priority:1" json:"topic_id"`
	PillarID            uuid.UUID      `gorm:"type:uuid;column:pillar_id;not null;index" json:"pillar_id"`
	VariantLabel        string         `gorm:"column:variant_label;not null" json:"variant_label"`
	Style               string         `gorm:"column:style" json:"style"`
	FullText            string         `gorm:"column:full_text;not null" json:"full_text"`
	Hook                string         `gorm:"column:hook" json:"hook"`
	Body                string         `gorm:"column:body" json:"body"`
	CallToAction        string         `gorm:"column:call_to_action" json:"call_to_action"`
	Tags                datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	CharCount           int            `gorm:"column:char_count;not null" json:"char_count"`
	VoiceMatchScore     float64        `gorm:"column:voice_match_score;not null;default:0" json:"voice_match_score"`
	EstimatedEngagement float64        `gorm:"column:estimated_engagement;not null;default:0" json:"estimated_engagement"`
	QualityWarnings     datatypes.JSON `gorm:"column:quality_warnings;type:jsonb" json:"quality_warnings"`
	Flagged             bool           `gorm:"column:flagged;not null;default:false" json:"flagged"`
	Status              DraftStatus    `gorm:"column:status;not null;index:idx_draft_topic_status,priority:2" json:"status"`
	ApprovedAt          *time.Time     `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedAt          *time.Time     `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	ScheduledFor        *time.Time     `gorm:"column:scheduled_for" json:"scheduled_for,omitempty"`
	ScheduledAt         *time.Time     `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	PostedAt            *time.Time     `gorm:"column:posted_at" json:"posted_at,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (GeneratedDraft) TableName() string { return "generated_draft" }

func (d *GeneratedDraft) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// BeforeSave refuses to persist a draft whose stored count drifted from its text.
func (d *GeneratedDraft) BeforeSave(tx *gorm.DB) error {
	return d.CheckCharCount()
}

// CharCountOf is the single definition of "character count": Unicode code points.
func CharCountOf(s string) int { return utf8.RuneCountInString(s) }

func (d *GeneratedDraft) CheckCharCount() error {
	if got := CharCountOf(d.FullText); got != d.CharCount {
		return apperr.Invariant("draft.char_count", apperr.ErrCharCountMismatch, "char_count=%d text=%d", d.CharCount, got)
	}
	return nil
}

var draftFlow = map[DraftStatus][]DraftStatus{
	DraftStatusDraft:     {DraftStatusApproved, DraftStatusRejected},
	DraftStatusApproved:  {DraftStatusScheduled, DraftStatusPosted},
	DraftStatusScheduled: {DraftStatusPosted},
	DraftStatusRejected:  nil,
	DraftStatusPosted:    nil,
}

func CanTransitionDraft(from, to DraftStatus) bool {
	for _, s := range draftFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves the draft to next and stamps the matching timestamp.
// scheduledFor is required (and must be in the future) for scheduling.
func (d *GeneratedDraft) ApplyTransition(next DraftStatus, now time.Time, scheduledFor *time.Time) error {
	if !CanTransitionDraft(d.Status, next) {
		return apperr.New(apperr.CodeConflict, "draft.transition", fmt.Sprintf("%s -> %s", d.Status, next), apperr.ErrIllegalTransition)
	}
	switch next {
	case DraftStatusApproved:
		d.ApprovedAt = &now
	case DraftStatusRejected:
		d.RejectedAt = &now
	case DraftStatusScheduled:
		if scheduledFor == nil || !scheduledFor.After(now) {
			return apperr.Validation("draft.schedule", nil, "scheduled time must be in the future")
		}
		t := scheduledFor.UTC()
		d.ScheduledFor = &t
		d.ScheduledAt = &now
	case DraftStatusPosted:
		d.PostedAt = &now
	}
	d.Status = next
	d.UpdatedAt = now
	return nil
}

// CanDelete protects the historical record of published posts.
func (d *GeneratedDraft) CanDelete() error {
	if d.Status == DraftStatusPosted {
		return apperr.New(apperr.CodeConflict, "draft.delete", "", apperr.ErrPostedImmutable)
	}
	return nil
}
