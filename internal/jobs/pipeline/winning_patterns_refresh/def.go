package winning_patterns_refresh

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
	jobtypes "github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// Refresher is the slice of the pattern service this job needs.
type Refresher interface {
	Refresh(ctx context.Context, ownerUserID uuid.UUID) (*content.WinningPattern, error)
}

type Pipeline struct {
	log      *logger.Logger
	patterns Refresher
}

func New(baseLog *logger.Logger, patterns Refresher) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", jobtypes.TypeWinningPatternsRefresh),
		patterns: patterns,
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeWinningPatternsRefresh }
