package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PerformanceTier string

const (
	TierBelowAverage PerformanceTier = "below_average"
	TierAverage      PerformanceTier = "average"
	TierGood         PerformanceTier = "good"
	TierTopPerformer PerformanceTier = "top_performer"
)

// Rank orders tiers from lowest (0) to highest.
func (t PerformanceTier) Rank() int {
	switch t {
	case TierAverage:
		return 1
	case TierGood:
		return 2
	case TierTopPerformer:
		return 3
	default:
		return 0
	}
}

// PerformanceRecord is unique per draft; reports upsert into it.
type PerformanceRecord struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	DraftID           uuid.UUID       `gorm:"type:uuid;column:draft_id;not null;uniqueIndex" json:"draft_id"`
	Likes             int             `gorm:"column:likes;not null;default:0" json:"likes"`
	Comments          int             `gorm:"column:comments;not null;default:0" json:"comments"`
	Reposts           int             `gorm:"column:reposts;not null;default:0" json:"reposts"`
	Impressions       int             `gorm:"column:impressions;not null;default:0" json:"impressions"`
	EngagementRate    float64         `gorm:"column:engagement_rate;not null;default:0" json:"engagement_rate"`
	WeightedActions   float64         `gorm:"column:weighted_actions;not null;default:0" json:"weighted_actions"`
	Tier              PerformanceTier `gorm:"column:tier;not null;index" json:"tier"`
	MeasuredAt        time.Time       `gorm:"column:measured_at;not null;index" json:"measured_at"`
	PatternExtraction datatypes.JSON  `gorm:"column:pattern_extraction;type:jsonb" json:"pattern_extraction,omitempty"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (PerformanceRecord) TableName() string { return "performance_record" }

func (r *PerformanceRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// WinningPattern is the latest derived summary of a user's top performers.
type WinningPattern struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"owner_user_id"`
	SampleSize  int            `gorm:"column:sample_size;not null;default:0" json:"sample_size"`
	Summary     datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary"`
	DerivedAt   time.Time      `gorm:"column:derived_at;not null" json:"derived_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (WinningPattern) TableName() string { return "winning_pattern" }

func (w *WinningPattern) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

const (
	UsageActionGeneration   = "generation"
	UsageActionRegeneration = "regeneration"
	UsageActionVoiceTrain   = "voice_training"
)

// UsageCounter tracks per-period consumption for one action.
type UsageCounter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_owner_action_period,priority:1" json:"owner_user_id"`
	Action      string    `gorm:"column:action;not null;uniqueIndex:idx_usage_owner_action_period,priority:2" json:"action"`
	Period      string    `gorm:"column:period;not null;uniqueIndex:idx_usage_owner_action_period,priority:3" json:"period"`
	Count       int       `gorm:"column:count;not null;default:0" json:"count"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (UsageCounter) TableName() string { return "usage_counter" }

func (u *UsageCounter) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UsagePeriod buckets usage by calendar month (UTC).
func UsagePeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
