package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ExampleStatusActive   = "active"
	ExampleStatusArchived = "archived"

	ExampleSourceSelf     = "self"
	ExampleSourcePasted   = "pasted"
	ExampleSourceImported = "imported"
)

type VoiceExample struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index:idx_voice_example_owner_status,priority:1" json:"owner_user_id"`
	Text        string         `gorm:"column:text;not null" json:"text"`
	CharCount   int            `gorm:"column:char_count;not null" json:"char_count"`
	Embedding   datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`
	PillarID    *uuid.UUID     `gorm:"type:uuid;column:pillar_id;index" json:"pillar_id,omitempty"`
	Status      string         `gorm:"column:status;not null;index:idx_voice_example_owner_status,priority:2" json:"status"`
	Source      string         `gorm:"column:source;not null" json:"source"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (VoiceExample) TableName() string { return "voice_example" }

func (e *VoiceExample) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (e *VoiceExample) IsActive() bool { return e != nil && e.Status == ExampleStatusActive }

// VoiceProfile is the per-user singleton. MasterEmbedding stays empty until a
// successful analysis over at least the configured minimum of examples.
type VoiceProfile struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"owner_user_id"`
	MasterEmbedding  datatypes.JSON `gorm:"column:master_embedding;type:jsonb" json:"-"`
	Dimensions       int            `gorm:"column:dimensions;not null;default:0" json:"dimensions"`
	ConsistencyScore float64        `gorm:"column:consistency_score;not null;default:0" json:"consistency_score"`
	ExampleCount     int            `gorm:"column:example_count;not null;default:0" json:"example_count"`
	LastAnalyzedAt   *time.Time     `gorm:"column:last_analyzed_at" json:"last_analyzed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (VoiceProfile) TableName() string { return "voice_profile" }

func (p *VoiceProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Trained reports whether the profile carries a usable master vector.
func (p *VoiceProfile) Trained() bool {
	return p != nil && len(p.MasterEmbedding) > 0 && p.Dimensions > 0
}

func (p *VoiceProfile) Vector() []float32 {
	if p == nil {
		return nil
	}
	return DecodeVector(p.MasterEmbedding)
}
