package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type DraftFilter struct {
	TopicID uuid.UUID
	Status  types.DraftStatus
	Limit   int
	Offset  int
}

type GeneratedDraftRepo interface {
	Create(dbc dbctx.Context, drafts []*types.GeneratedDraft) ([]*types.GeneratedDraft, error)
	GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.GeneratedDraft, error)
	List(dbc dbctx.Context, ownerUserID uuid.UUID, filter DraftFilter) ([]*types.GeneratedDraft, error)
	ListByTopic(dbc dbctx.Context, ownerUserID, topicID uuid.UUID, statuses ...types.DraftStatus) ([]*types.GeneratedDraft, error)
	DeleteByTopicStatus(dbc dbctx.Context, ownerUserID, topicID uuid.UUID, status types.DraftStatus) (int64, error)
	DeleteUnlessStatus(dbc dbctx.Context, ownerUserID, id uuid.UUID, protected types.DraftStatus) (bool, error)
}

type generatedDraftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedDraftRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedDraftRepo {
	return &generatedDraftRepo{db: db, log: baseLog.With("repo", "GeneratedDraftRepo")}
}

func (r *generatedDraftRepo) Create(dbc dbctx.Context, drafts []*types.GeneratedDraft) ([]*types.GeneratedDraft, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(drafts) == 0 {
		return []*types.GeneratedDraft{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

func (r *generatedDraftRepo) GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.GeneratedDraft, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var d types.GeneratedDraft
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *generatedDraftRepo) List(dbc dbctx.Context, ownerUserID uuid.UUID, filter DraftFilter) ([]*types.GeneratedDraft, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GeneratedDraft
	q := transaction.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID)
	if filter.TopicID != uuid.Nil {
		q = q.Where("topic_id = ?", filter.TopicID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Order("created_at DESC").Order("variant_label ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generatedDraftRepo) ListByTopic(dbc dbctx.Context, ownerUserID, topicID uuid.UUID, statuses ...types.DraftStatus) ([]*types.GeneratedDraft, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GeneratedDraft
	q := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND topic_id = ?", ownerUserID, topicID)
	if len(statuses) == 1 {
		q = q.Where("status = ?", statuses[0])
	} else if len(statuses) > 1 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("variant_label ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generatedDraftRepo) DeleteByTopicStatus(dbc dbctx.Context, ownerUserID, topicID uuid.UUID, status types.DraftStatus) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND topic_id = ? AND status = ?", ownerUserID, topicID, status).
		Delete(&types.GeneratedDraft{})
	return res.RowsAffected, res.Error
}

// DeleteUnlessStatus refuses rows currently in the protected status.
func (r *generatedDraftRepo) DeleteUnlessStatus(dbc dbctx.Context, ownerUserID, id uuid.UUID, protected types.DraftStatus) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ? AND status <> ?", id, ownerUserID, protected).
		Delete(&types.GeneratedDraft{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
