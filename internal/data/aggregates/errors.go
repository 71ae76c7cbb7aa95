package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

// MapError turns a storage failure into a coded apperr. Errors that already
// carry a code pass through so domain sentinels survive the transaction.
// Postgres is matched by SQLSTATE, SQLite by message text.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *apperr.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Wrap(apperr.CodeConflict, op, err)
		case "23503":
			// pillar or topic removed under a dependent insert
			return apperr.Wrap(apperr.CodePreconditionFailed, op, err)
		case "40001", "40P01", "55P03":
			return apperr.Wrap(apperr.CodeRetryable, op, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return apperr.Wrap(apperr.CodeConflict, op, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return apperr.Wrap(apperr.CodePreconditionFailed, op, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "deadlock"), strings.Contains(msg, "timeout"):
		return apperr.Wrap(apperr.CodeRetryable, op, err)
	default:
		return apperr.Wrap(apperr.CodeInternal, op, err)
	}
}
