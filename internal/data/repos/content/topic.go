package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type RawTopicRepo interface {
	Create(dbc dbctx.Context, topics []*types.RawTopic) ([]*types.RawTopic, error)
	GetByIDs(dbc dbctx.Context, ownerUserID uuid.UUID, ids []uuid.UUID) ([]*types.RawTopic, error)
	ListUnprocessed(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.RawTopic, error)
	// MarkProcessed stamps only rows not yet processed and returns how many it
	// stamped.
	MarkProcessed(dbc dbctx.Context, ids []uuid.UUID, at time.Time) (int64, error)
}

type rawTopicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawTopicRepo(db *gorm.DB, baseLog *logger.Logger) RawTopicRepo {
	return &rawTopicRepo{db: db, log: baseLog.With("repo", "RawTopicRepo")}
}

func (r *rawTopicRepo) Create(dbc dbctx.Context, topics []*types.RawTopic) ([]*types.RawTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(topics) == 0 {
		return []*types.RawTopic{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *rawTopicRepo) GetByIDs(dbc dbctx.Context, ownerUserID uuid.UUID, ids []uuid.UUID) ([]*types.RawTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RawTopic
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND id IN ?", ownerUserID, ids).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawTopicRepo) ListUnprocessed(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*types.RawTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RawTopic
	q := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND processed_at IS NULL", ownerUserID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawTopicRepo) MarkProcessed(dbc dbctx.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.RawTopic{}).
		Where("id IN ? AND processed_at IS NULL", ids).
		Updates(map[string]interface{}{
			"processed_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

type TopicFilter struct {
	Status   types.TopicStatus
	PillarID uuid.UUID
	Limit    int
	Offset   int
}

type ClassifiedTopicRepo interface {
	Create(dbc dbctx.Context, topics []*types.ClassifiedTopic) ([]*types.ClassifiedTopic, error)
	GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.ClassifiedTopic, error)
	List(dbc dbctx.Context, ownerUserID uuid.UUID, filter TopicFilter) ([]*types.ClassifiedTopic, error)
	UpdateStatusFrom(dbc dbctx.Context, ownerUserID, id uuid.UUID, from, to types.TopicStatus) (bool, error)
}

type classifiedTopicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassifiedTopicRepo(db *gorm.DB, baseLog *logger.Logger) ClassifiedTopicRepo {
	return &classifiedTopicRepo{db: db, log: baseLog.With("repo", "ClassifiedTopicRepo")}
}

func (r *classifiedTopicRepo) Create(dbc dbctx.Context, topics []*types.ClassifiedTopic) ([]*types.ClassifiedTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(topics) == 0 {
		return []*types.ClassifiedTopic{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *classifiedTopicRepo) GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.ClassifiedTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var t types.ClassifiedTopic
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == uuid.Nil {
		return nil, nil
	}
	return &t, nil
}

func (r *classifiedTopicRepo) List(dbc dbctx.Context, ownerUserID uuid.UUID, filter TopicFilter) ([]*types.ClassifiedTopic, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ClassifiedTopic
	q := transaction.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PillarID != uuid.Nil {
		q = q.Where("pillar_id = ?", filter.PillarID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusFrom is a compare-and-set on status; false means the row moved.
func (r *classifiedTopicRepo) UpdateStatusFrom(dbc dbctx.Context, ownerUserID, id uuid.UUID, from, to types.TopicStatus) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ClassifiedTopic{}).
		Where("id = ? AND owner_user_id = ? AND status = ?", id, ownerUserID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
