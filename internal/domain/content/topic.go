package content

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

const (
	TopicSourceManual   = "manual"
	TopicSourceResearch = "research"
	TopicSourceImported = "imported"
)

type TopicStatus string

const (
	TopicApproved    TopicStatus = "approved"
	TopicPending     TopicStatus = "pending"
	TopicNeedsReview TopicStatus = "needs_review"
	TopicArchived    TopicStatus = "archived"
)

type HookAngle string

const (
	HookEmotional    HookAngle = "emotional"
	HookAnalytical   HookAngle = "analytical"
	HookStorytelling HookAngle = "storytelling"
	HookContrarian   HookAngle = "contrarian"
	HookDataDriven   HookAngle = "data-driven"
)

type RawTopic struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Source      string     `gorm:"column:source;not null" json:"source"`
	Content     string     `gorm:"column:content;not null" json:"content"`
	SourceURL   string     `gorm:"column:source_url" json:"source_url,omitempty"`
	ProcessedAt *time.Time `gorm:"column:processed_at;index" json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (RawTopic) TableName() string { return "raw_topic" }

func (t *RawTopic) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type ClassifiedTopic struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	RawTopicID  *uuid.UUID     `gorm:"type:uuid;column:raw_topic_id;uniqueIndex" json:"raw_topic_id,omitempty"`
	PillarID    uuid.UUID      `gorm:"type:uuid;column:pillar_id;not null;index" json:"pillar_id"`
	PillarName  string         `gorm:"column:pillar_name;not null" json:"pillar_name"`
	Content     string         `gorm:"column:content;not null" json:"content"`
	Confidence  float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Relevance   float64        `gorm:"column:relevance;not null;default:0" json:"relevance"`
	Reasoning   string         `gorm:"column:reasoning" json:"reasoning"`
	HookAngle   HookAngle      `gorm:"column:hook_angle;not null" json:"hook_angle"`
	Tags        datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	Status      TopicStatus    `gorm:"column:status;not null;index" json:"status"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ClassifiedTopic) TableName() string { return "classified_topic" }

func (t *ClassifiedTopic) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// topicFlow lists the forward moves; anything else needs an explicit override.
var topicFlow = map[TopicStatus][]TopicStatus{
	TopicNeedsReview: {TopicPending, TopicApproved, TopicArchived},
	TopicPending:     {TopicApproved, TopicArchived},
	TopicApproved:    {TopicArchived},
	TopicArchived:    nil,
}

func ValidTopicStatus(s TopicStatus) bool {
	_, ok := topicFlow[s]
	return ok
}

// CanTransitionTopic reports whether from->to is a normal forward move.
func CanTransitionTopic(from, to TopicStatus) bool {
	for _, s := range topicFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTopicTransition allows any known target when override is set.
func CheckTopicTransition(from, to TopicStatus, override bool) error {
	if !ValidTopicStatus(to) {
		return apperr.Validation("topic.transition", nil, "unknown topic status %q", to)
	}
	if from == to {
		return nil
	}
	if override || CanTransitionTopic(from, to) {
		return nil
	}
	return apperr.New(apperr.CodeConflict, "topic.transition", fmt.Sprintf("%s -> %s", from, to), apperr.ErrIllegalTransition)
}
