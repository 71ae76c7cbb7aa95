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

type UsageCounterRepo interface {
	Get(dbc dbctx.Context, ownerUserID uuid.UUID, action, period string) (int, error)
	Increment(dbc dbctx.Context, ownerUserID uuid.UUID, action, period string, amount int) error
}

type usageCounterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageCounterRepo(db *gorm.DB, baseLog *logger.Logger) UsageCounterRepo {
	return &usageCounterRepo{db: db, log: baseLog.With("repo", "UsageCounterRepo")}
}

func (r *usageCounterRepo) Get(dbc dbctx.Context, ownerUserID uuid.UUID, action, period string) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.UsageCounter
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND action = ? AND period = ?", ownerUserID, action, period).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// Increment creates the counter row on first use and adds atomically afterwards.
func (r *usageCounterRepo) Increment(dbc dbctx.Context, ownerUserID uuid.UUID, action, period string, amount int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if amount <= 0 {
		return nil
	}
	now := time.Now().UTC()
	row := &types.UsageCounter{
		OwnerUserID: ownerUserID,
		Action:      action,
		Period:      period,
		Count:       amount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_user_id"}, {Name: "action"}, {Name: "period"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("usage_counter.count + ?", amount),
				"updated_at": now,
			}),
		}).
		Create(row).Error
}
