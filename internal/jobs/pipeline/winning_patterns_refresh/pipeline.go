package winning_patterns_refresh

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/postvoice-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	owner := jc.Job.OwnerUserID
	if owner == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing owner_user_id"))
		return nil
	}

	jc.Heartbeat()
	wp, err := p.patterns.Refresh(jc.Ctx, owner)
	if err != nil {
		jc.Fail("refresh", err)
		return nil
	}
	if wp == nil {
		p.log.Debug("Not enough performance data for patterns", "owner_user_id", owner)
		jc.Succeed(map[string]any{"updated": false})
		return nil
	}

	out := map[string]any{
		"updated":     true,
		"pattern_id":  wp.ID.String(),
		"sample_size": wp.SampleSize,
	}
	if id, ok := jc.PayloadUUID("trigger_draft_id"); ok {
		out["trigger_draft_id"] = id.String()
	}
	jc.Succeed(out)
	return nil
}
