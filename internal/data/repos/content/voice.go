package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type VoiceExampleRepo interface {
	Create(dbc dbctx.Context, examples []*types.VoiceExample) ([]*types.VoiceExample, error)
	GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.VoiceExample, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, includeArchived bool) ([]*types.VoiceExample, error)
	ListActive(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.VoiceExample, error)
	CountActive(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error)
	UpdateEmbeddings(dbc dbctx.Context, ownerUserID uuid.UUID, vectors map[uuid.UUID][]float32) error
	SetStatus(dbc dbctx.Context, ownerUserID, id uuid.UUID, status string) (bool, error)
}

type voiceExampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoiceExampleRepo(db *gorm.DB, baseLog *logger.Logger) VoiceExampleRepo {
	return &voiceExampleRepo{db: db, log: baseLog.With("repo", "VoiceExampleRepo")}
}

func (r *voiceExampleRepo) Create(dbc dbctx.Context, examples []*types.VoiceExample) ([]*types.VoiceExample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(examples) == 0 {
		return []*types.VoiceExample{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&examples).Error; err != nil {
		return nil, err
	}
	return examples, nil
}

func (r *voiceExampleRepo) GetByID(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.VoiceExample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var ex types.VoiceExample
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).
		Find(&ex).Error
	if err != nil {
		return nil, err
	}
	if ex.ID == uuid.Nil {
		return nil, nil
	}
	return &ex, nil
}

func (r *voiceExampleRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, includeArchived bool) ([]*types.VoiceExample, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.VoiceExample
	if ownerUserID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID)
	if !includeArchived {
		q = q.Where("status = ?", types.ExampleStatusActive)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *voiceExampleRepo) ListActive(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.VoiceExample, error) {
	return r.ListByOwner(dbc, ownerUserID, false)
}

func (r *voiceExampleRepo) CountActive(dbc dbctx.Context, ownerUserID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.VoiceExample{}).
		Where("owner_user_id = ? AND status = ?", ownerUserID, types.ExampleStatusActive).
		Count(&count).Error
	return count, err
}

func (r *voiceExampleRepo) UpdateEmbeddings(dbc dbctx.Context, ownerUserID uuid.UUID, vectors map[uuid.UUID][]float32) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	for id, vec := range vectors {
		if id == uuid.Nil {
			continue
		}
		err := transaction.WithContext(dbc.Ctx).
			Model(&types.VoiceExample{}).
			Where("id = ? AND owner_user_id = ?", id, ownerUserID).
			Updates(map[string]interface{}{
				"embedding":  types.EncodeVector(vec),
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *voiceExampleRepo) SetStatus(dbc dbctx.Context, ownerUserID, id uuid.UUID, status string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.VoiceExample{}).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type VoiceProfileRepo interface {
	GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.VoiceProfile, error)
	Upsert(dbc dbctx.Context, profile *types.VoiceProfile) error
}

type voiceProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVoiceProfileRepo(db *gorm.DB, baseLog *logger.Logger) VoiceProfileRepo {
	return &voiceProfileRepo{db: db, log: baseLog.With("repo", "VoiceProfileRepo")}
}

func (r *voiceProfileRepo) GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*types.VoiceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == uuid.Nil {
		return nil, nil
	}
	var p types.VoiceProfile
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
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

// Upsert keeps one profile per owner; a retrain overwrites the analysis fields.
func (r *voiceProfileRepo) Upsert(dbc dbctx.Context, profile *types.VoiceProfile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"master_embedding",
				"dimensions",
				"consistency_score",
				"example_count",
				"last_analyzed_at",
				"updated_at",
			}),
		}).
		Create(profile).Error
}
