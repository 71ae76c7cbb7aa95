package aggregates

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

// TxRunner opens the transaction an aggregate write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

const (
	txAttempts     = 3
	txBackoffFloor = 5 * time.Millisecond
	txBackoffCeil  = 50 * time.Millisecond
)

type gormTxRunner struct {
	db     *gorm.DB
	policy retrypolicy.RetryPolicy[any]
}

// NewGormTxRunner returns a runner that reruns the whole write when Postgres
// aborts the transaction for a serialization failure or a deadlock. The body
// must only depend on state it reads inside the transaction.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{
		db: db,
		policy: retrypolicy.NewBuilder[any]().
			HandleIf(func(_ any, err error) bool { return txAborted(err) }).
			WithMaxAttempts(txAttempts).
			WithBackoff(txBackoffFloor, txBackoffCeil).
			ReturnLastFailure().
			Build(),
	}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return apperr.New(apperr.CodeInternal, "aggregate.tx", "transaction runner has no database", nil)
	}
	return failsafe.With[any](r.policy).WithContext(ctx).Run(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	})
}

// txAborted reports whether Postgres rolled the transaction back on its own,
// so running it again from the start is safe.
func txAborted(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
