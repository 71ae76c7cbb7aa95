package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	types "github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

/*
Context is the execution handle for a single claimed job run.
Pipelines never touch job_run directly; they report through Heartbeat,
Fail and Succeed so the lifecycle writes stay in one place.
*/
type Context struct {
	Ctx  context.Context
	DB   *gorm.DB
	Job  *types.JobRun
	Repo repos.JobRunRepo

	payload  map[string]any
	terminal bool
}

// NewContext decodes the payload eagerly. A malformed payload decodes to an
// empty map; handlers validate the fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Heartbeat keeps a long-running job from being reclaimed as stale.
func (c *Context) Heartbeat() {
	if c == nil || c.Repo == nil || c.Job == nil {
		return
	}
	_ = c.Repo.Heartbeat(dbctx.Context{Ctx: c.ctx()}, c.Job.ID)
}

// Fail records err and leaves the row eligible for retry until the attempt
// budget runs out.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.terminal {
		return
	}
	c.terminal = true
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if stage != "" {
		msg = stage + ": " + msg
	}
	if c.Repo != nil && c.Job != nil {
		_ = c.Repo.MarkFailed(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, msg)
	}
	if c.Job != nil {
		c.Job.Status = types.StatusFailed
		c.Job.Stage = types.StatusFailed
		c.Job.Error = msg
	}
}

func (c *Context) Succeed(result any) {
	if c == nil || c.terminal {
		return
	}
	c.terminal = true
	var b []byte
	if result != nil {
		b, _ = json.Marshal(result)
	}
	if c.Repo != nil && c.Job != nil {
		_ = c.Repo.MarkSucceeded(dbctx.Context{Ctx: c.ctx()}, c.Job.ID, b)
	}
	if c.Job != nil {
		c.Job.Status = types.StatusSucceeded
		c.Job.Stage = types.StatusSucceeded
		c.Job.Error = ""
		if len(b) > 0 {
			c.Job.Result = b
		}
	}
}

// Done reports whether Fail or Succeed already ran.
func (c *Context) Done() bool { return c != nil && c.terminal }

// terminal writes outlive the claim context so a shutdown still records them.
func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(c.Ctx)
}
