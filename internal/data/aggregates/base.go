package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// executeWrite runs fn in one transaction, maps the failure onto an apperr
// code and reports the outcome to the hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	start := time.Now()
	err := MapError(op, deps.Runner.InTx(ctx, fn))
	deps.Hooks.ObserveWrite(op, err, time.Since(start))
	if apperr.IsCode(err, apperr.CodeInternal) {
		deps.Log.Error("Aggregate write failed", "op", op, "error", err)
	}
	return err
}
