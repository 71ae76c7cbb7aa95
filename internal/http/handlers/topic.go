package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type TopicHandler struct {
	topics services.TopicService
}

func NewTopicHandler(topics services.TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

type ingestTopicsRequest struct {
	Topics []struct {
		Content   string `json:"content"`
		Source    string `json:"source"`
		SourceURL string `json:"source_url"`
	} `json:"topics" binding:"required"`
}

// POST /api/topics/raw
func (h *TopicHandler) Ingest(c *gin.Context) {
	var req ingestTopicsRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	in := make([]services.RawTopicInput, 0, len(req.Topics))
	for _, t := range req.Topics {
		in = append(in, services.RawTopicInput{Content: t.Content, Source: t.Source, SourceURL: t.SourceURL})
	}
	out, err := h.topics.Ingest(c.Request.Context(), in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"raw_topics": out})
}

type classifyTopicRequest struct {
	Content        string     `json:"content"`
	RawTopicID     *uuid.UUID `json:"raw_topic_id"`
	ManualApproval bool       `json:"manual_approval"`
}

// POST /api/topics/classify
func (h *TopicHandler) Classify(c *gin.Context) {
	var req classifyTopicRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	t, err := h.topics.Classify(c.Request.Context(), services.ClassifyTopicInput{
		Content:        req.Content,
		RawTopicID:     req.RawTopicID,
		ManualApproval: req.ManualApproval,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"topic": t})
}

type classifyPendingRequest struct {
	Limit          int  `json:"limit"`
	ManualApproval bool `json:"manual_approval"`
}

// POST /api/topics/classify-pending
func (h *TopicHandler) ClassifyPending(c *gin.Context) {
	var req classifyPendingRequest
	if err := bindJSON(c, &req, true); err != nil {
		response.RespondAppError(c, err)
		return
	}
	out, err := h.topics.ClassifyPending(c.Request.Context(), req.Limit, req.ManualApproval)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topics": out})
}

// GET /api/topics
func (h *TopicHandler) List(c *gin.Context) {
	pillarID, err := queryUUID(c, "pillar_id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	out, err := h.topics.List(c.Request.Context(), repos.TopicFilter{
		Status:   content.TopicStatus(c.Query("status")),
		PillarID: pillarID,
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topics": out})
}

// GET /api/topics/:id
func (h *TopicHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	t, err := h.topics.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": t})
}

type topicStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Override bool   `json:"override"`
}

// PATCH /api/topics/:id/status
func (h *TopicHandler) SetStatus(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	var req topicStatusRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	t, err := h.topics.SetStatus(c.Request.Context(), id, content.TopicStatus(req.Status), req.Override)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": t})
}

// DELETE /api/topics/:id
func (h *TopicHandler) Archive(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	t, err := h.topics.Archive(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"topic": t})
}
