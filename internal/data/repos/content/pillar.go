package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type PillarRepo interface {
	Create(dbc dbctx.Context, pillar *types.Pillar) error
	GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Pillar, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, activeOnly bool) ([]*types.Pillar, error)
	NameTaken(dbc dbctx.Context, ownerUserID uuid.UUID, normalizedName string, excludeID uuid.UUID) (bool, error)
	Save(dbc dbctx.Context, pillar *types.Pillar) error
	Delete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error)
	CountDependents(dbc dbctx.Context, ownerUserID, id uuid.UUID) (int64, error)
}

type pillarRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPillarRepo(db *gorm.DB, baseLog *logger.Logger) PillarRepo {
	return &pillarRepo{db: db, log: baseLog.With("repo", "PillarRepo")}
}

func (r *pillarRepo) Create(dbc dbctx.Context, pillar *types.Pillar) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(pillar).Error
}

func (r *pillarRepo) GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Pillar, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var p types.Pillar
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *pillarRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, activeOnly bool) ([]*types.Pillar, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Pillar
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID)
	if activeOnly {
		q = q.Where("status = ?", types.PillarStatusActive)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pillarRepo) NameTaken(dbc dbctx.Context, ownerUserID uuid.UUID, normalizedName string, excludeID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Pillar{}).
		Where("owner_user_id = ? AND normalized_name = ?", ownerUserID, normalizedName)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *pillarRepo) Save(dbc dbctx.Context, pillar *types.Pillar) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	pillar.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).Save(pillar).Error
}

func (r *pillarRepo) Delete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Delete(&types.Pillar{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountDependents counts classified topics and drafts that still reference the pillar.
func (r *pillarRepo) CountDependents(dbc dbctx.Context, ownerUserID, id uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var topics, drafts int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ClassifiedTopic{}).
		Where("owner_user_id = ? AND pillar_id = ?", ownerUserID, id).
		Count(&topics).Error; err != nil {
		return 0, err
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GeneratedDraft{}).
		Where("owner_user_id = ? AND pillar_id = ?", ownerUserID, id).
		Count(&drafts).Error; err != nil {
		return 0, err
	}
	return topics + drafts, nil
}
