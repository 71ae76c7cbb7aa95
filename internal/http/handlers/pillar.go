package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type PillarHandler struct {
	pillars services.PillarService
}

func NewPillarHandler(pillars services.PillarService) *PillarHandler {
	return &PillarHandler{pillars: pillars}
}

type pillarRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Tone               string `json:"tone"`
	Audience           string `json:"audience"`
	CustomInstructions string `json:"custom_instructions"`
	Status             string `json:"status"`
}

func (r pillarRequest) input() services.PillarInput {
	return services.PillarInput{
		Name:               r.Name,
		Description:        r.Description,
		Tone:               r.Tone,
		Audience:           r.Audience,
		CustomInstructions: r.CustomInstructions,
		Status:             r.Status,
	}
}

// POST /api/pillars
func (h *PillarHandler) Create(c *gin.Context) {
	var req pillarRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	p, err := h.pillars.Create(c.Request.Context(), req.input())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"pillar": p})
}

// PATCH /api/pillars/:id
func (h *PillarHandler) Update(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	var req pillarRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	p, err := h.pillars.Update(c.Request.Context(), id, req.input())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pillar": p})
}

// GET /api/pillars/:id
func (h *PillarHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	p, err := h.pillars.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pillar": p})
}

// GET /api/pillars
func (h *PillarHandler) List(c *gin.Context) {
	out, err := h.pillars.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pillars": out})
}

// DELETE /api/pillars/:id
func (h *PillarHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if err := h.pillars.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}
