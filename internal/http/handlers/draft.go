package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/apierr"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type DraftHandler struct {
	drafts      services.DraftService
	performance services.EngagementFeedbackLoop
}

func NewDraftHandler(drafts services.DraftService, performance services.EngagementFeedbackLoop) *DraftHandler {
	return &DraftHandler{drafts: drafts, performance: performance}
}

type generateDraftsRequest struct {
	Styles      []voicegen.StyleSpec `json:"styles"`
	Count       int                  `json:"count"`
	Perspective string               `json:"perspective"`
}

// POST /api/topics/:id/drafts
func (h *DraftHandler) Generate(c *gin.Context) {
	h.generate(c, h.drafts.Generate)
}

// POST /api/topics/:id/drafts/regenerate
func (h *DraftHandler) Regenerate(c *gin.Context) {
	h.generate(c, h.drafts.Regenerate)
}

func (h *DraftHandler) generate(c *gin.Context, run func(context.Context, services.GenerateDraftsInput) (*services.DraftSetResult, error)) {
	topicID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	var req generateDraftsRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.RespondAppError(c, err)
		return
	}
	res, err := run(c.Request.Context(), services.GenerateDraftsInput{
		TopicID:     topicID,
		Styles:      req.Styles,
		Count:       req.Count,
		Perspective: req.Perspective,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"topic_id": res.TopicID,
		"drafts":   res.Drafts,
		"replaced": res.Replaced,
		"meta":     res.Meta,
	})
}

// GET /api/drafts
func (h *DraftHandler) List(c *gin.Context) {
	topicID, err := queryUUID(c, "topic_id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	out, err := h.drafts.List(c.Request.Context(), repos.DraftFilter{
		TopicID: topicID,
		Status:  content.DraftStatus(c.Query("status")),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"drafts": out})
}

// GET /api/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	h.withDraft(c, h.drafts.Get)
}

// POST /api/drafts/:id/approve
func (h *DraftHandler) Approve(c *gin.Context) {
	h.withDraft(c, h.drafts.Approve)
}

// POST /api/drafts/:id/reject
func (h *DraftHandler) Reject(c *gin.Context) {
	h.withDraft(c, h.drafts.Reject)
}

type scheduleRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for"`
}

// POST /api/drafts/:id/schedule
func (h *DraftHandler) Schedule(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	var req scheduleRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	if req.ScheduledFor == nil {
		response.RespondAppError(c, apierr.BadRequest("missing_scheduled_for", errors.New("scheduled_for is required")))
		return
	}
	d, err := h.drafts.Schedule(c.Request.Context(), id, *req.ScheduledFor)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}

// DELETE /api/drafts/:id
func (h *DraftHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}

type performanceRequest struct {
	Likes       int        `json:"likes"`
	Comments    int        `json:"comments"`
	Reposts     int        `json:"reposts"`
	Impressions int        `json:"impressions"`
	MeasuredAt  *time.Time `json:"measured_at"`
}

// POST /api/drafts/:id/performance
func (h *DraftHandler) RecordPerformance(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	var req performanceRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	in := services.RecordPerformanceInput{
		DraftID:     id,
		Likes:       req.Likes,
		Comments:    req.Comments,
		Reposts:     req.Reposts,
		Impressions: req.Impressions,
	}
	if req.MeasuredAt != nil {
		in.MeasuredAt = *req.MeasuredAt
	}
	out, err := h.performance.RecordPerformance(c.Request.Context(), in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"performance":     out.Record,
		"tier":            out.Tier,
		"engagement_rate": out.EngagementRate,
		"relative":        out.Relative,
		"updated":         out.Updated,
		"refresh_queued":  out.RefreshQueued,
	})
}

// GET /api/drafts/:id/performance
func (h *DraftHandler) GetPerformance(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	rec, err := h.performance.GetPerformance(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"performance": rec})
}

func (h *DraftHandler) withDraft(c *gin.Context, fn func(context.Context, uuid.UUID) (*content.GeneratedDraft, error)) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	d, err := fn(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}
