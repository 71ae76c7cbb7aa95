package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PillarStatusActive   = "active"
	PillarStatusInactive = "inactive"
)

type Pillar struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pillar_owner_name,priority:1" json:"owner_user_id"`
	Name               string    `gorm:"column:name;not null" json:"name"`
	NormalizedName     string    `gorm:"column:normalized_name;not null;uniqueIndex:idx_pillar_owner_name,priority:2" json:"-"`
	Description        string    `gorm:"column:description" json:"description"`
	Tone               string    `gorm:"column:tone" json:"tone"`
	Audience           string    `gorm:"column:audience" json:"audience"`
	CustomInstructions string    `gorm:"column:custom_instructions" json:"custom_instructions"`
	Status             string    `gorm:"column:status;not null;index" json:"status"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (Pillar) TableName() string { return "pillar" }

func (p *Pillar) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *Pillar) BeforeSave(tx *gorm.DB) error {
	p.NormalizedName = NormalizePillarName(p.Name)
	return nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizePillarName folds case, punctuation and whitespace so that
// "AI  Innovation", "ai-innovation" and "AI_Innovation!" collide.
func NormalizePillarName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
