package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
)

// requestUserID resolves the caller set by the request middleware.
func requestUserID(ctx context.Context, op string) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apperr.Unauthenticated(op)
	}
	return rd.UserID, nil
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
