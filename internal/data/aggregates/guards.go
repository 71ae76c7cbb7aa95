package aggregates

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

// CASGuard writes draft state only while the row still holds the status the
// caller read, so two writers racing on one draft cannot both win.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) conn(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, apperr.New(apperr.CodeInternal, "aggregate.cas", "no database handle", nil)
}

// MoveDraft persists d's status and transition timestamps if the stored row
// is still in status from. A lost race returns a conflict wrapping
// apperr.ErrStaleWrite.
func (g CASGuard) MoveDraft(dbc dbctx.Context, d *content.GeneratedDraft, from content.DraftStatus) error {
	db, err := g.conn(dbc)
	if err != nil {
		return err
	}
	res := db.Model(&content.GeneratedDraft{}).
		Where("id = ? AND owner_user_id = ? AND status = ?", d.ID, d.OwnerUserID, from).
		Updates(draftTransitionUpdates(d))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeConflict, "aggregate.cas",
			fmt.Sprintf("draft left %s before moving to %s", from, d.Status), apperr.ErrStaleWrite)
	}
	return nil
}
