package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// PerformedDraft joins a performance record with the draft and topic it measures.
type PerformedDraft struct {
	DraftID        uuid.UUID             `gorm:"column:draft_id"`
	Style          string                `gorm:"column:style"`
	Hook           string                `gorm:"column:hook"`
	CharCount      int                   `gorm:"column:char_count"`
	Tags           datatypes.JSON        `gorm:"column:tags"`
	HookAngle      types.HookAngle       `gorm:"column:hook_angle"`
	PillarName     string                `gorm:"column:pillar_name"`
	EngagementRate float64               `gorm:"column:engagement_rate"`
	Tier           types.PerformanceTier `gorm:"column:tier"`
	MeasuredAt     time.Time             `gorm:"column:measured_at"`
}

type PerformanceRecordRepo interface {
	Upsert(dbc dbctx.Context, rec *types.PerformanceRecord) error
	GetByDraftID(dbc dbctx.Context, ownerUserID, draftID uuid.UUID) (*types.PerformanceRecord, error)
	ListRecent(dbc dbctx.Context, ownerUserID uuid.UUID, limit int, excludeDraftID uuid.UUID) ([]types.PerformanceRecord, error)
	ListPerformed(dbc dbctx.Context, ownerUserID uuid.UUID, tiers []types.PerformanceTier, limit int) ([]PerformedDraft, error)
}

type performanceRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPerformanceRecordRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceRecordRepo {
	return &performanceRecordRepo{db: db, log: baseLog.With("repo", "PerformanceRecordRepo")}
}

// Upsert is keyed on draft_id; a second report overwrites the metrics.
func (r *performanceRecordRepo) Upsert(dbc dbctx.Context, rec *types.PerformanceRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "draft_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"likes",
				"comments",
				"reposts",
				"impressions",
				"engagement_rate",
				"weighted_actions",
				"tier",
				"measured_at",
				"pattern_extraction",
				"updated_at",
			}),
		}).
		Create(rec).Error
}

func (r *performanceRecordRepo) GetByDraftID(dbc dbctx.Context, ownerUserID, draftID uuid.UUID) (*types.PerformanceRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rec types.PerformanceRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("draft_id = ? AND owner_user_id = ?", draftID, ownerUserID).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

// ListRecent returns the newest records first, optionally skipping one draft
// so a re-report does not count itself in its own baseline.
func (r *performanceRecordRepo) ListRecent(dbc dbctx.Context, ownerUserID uuid.UUID, limit int, excludeDraftID uuid.UUID) ([]types.PerformanceRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.PerformanceRecord
	q := transaction.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID)
	if excludeDraftID != uuid.Nil {
		q = q.Where("draft_id <> ?", excludeDraftID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("measured_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *performanceRecordRepo) ListPerformed(dbc dbctx.Context, ownerUserID uuid.UUID, tiers []types.PerformanceTier, limit int) ([]PerformedDraft, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []PerformedDraft
	q := transaction.WithContext(dbc.Ctx).
		Table("performance_record AS pr").
		Select(`pr.draft_id, d.style, d.hook, d.char_count, d.tags,
			t.hook_angle, t.pillar_name, pr.engagement_rate, pr.tier, pr.measured_at`).
		Joins("JOIN generated_draft AS d ON d.id = pr.draft_id").
		Joins("LEFT JOIN classified_topic AS t ON t.id = d.topic_id").
		Where("pr.owner_user_id = ?", ownerUserID)
	if len(tiers) > 0 {
		q = q.Where("pr.tier IN ?", tiers)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("pr.measured_at DESC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type WinningPatternRepo interface {
	GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.WinningPattern, error)
	Upsert(dbc dbctx.Context, pattern *types.WinningPattern) error
}

type winningPatternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWinningPatternRepo(db *gorm.DB, baseLog *logger.Logger) WinningPatternRepo {
	return &winningPatternRepo{db: db, log: baseLog.With("repo", "WinningPatternRepo")}
}

func (r *winningPatternRepo) GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.WinningPattern, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var wp types.WinningPattern
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Limit(1).
		Find(&wp).Error
	if err != nil {
		return nil, err
	}
	if wp.ID == uuid.Nil {
		return nil, nil
	}
	return &wp, nil
}

func (r *winningPatternRepo) Upsert(dbc dbctx.Context, pattern *types.WinningPattern) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if pattern == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sample_size", "summary", "derived_at", "updated_at"}),
		}).
		Create(pattern).Error
}
