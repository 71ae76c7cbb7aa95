package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type VoiceHandler struct {
	voice services.VoiceService
}

func NewVoiceHandler(voice services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voice: voice}
}

type addExamplesRequest struct {
	Examples []struct {
		Text     string     `json:"text"`
		Source   string     `json:"source"`
		PillarID *uuid.UUID `json:"pillar_id"`
	} `json:"examples" binding:"required"`
}

// POST /api/voice/examples
func (h *VoiceHandler) AddExamples(c *gin.Context) {
	var req addExamplesRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	in := make([]services.AddExampleInput, 0, len(req.Examples))
	for _, e := range req.Examples {
		in = append(in, services.AddExampleInput{Text: e.Text, Source: e.Source, PillarID: e.PillarID})
	}
	out, err := h.voice.AddExamples(c.Request.Context(), in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"examples": out})
}

type importProfileRequest struct {
	ProfileURL string `json:"profile_url" binding:"required"`
	Limit      int    `json:"limit"`
}

// POST /api/voice/import
func (h *VoiceHandler) ImportFromProfile(c *gin.Context) {
	var req importProfileRequest
	if err := bindJSON(c, &req, false); err != nil {
		response.RespondAppError(c, err)
		return
	}
	res, err := h.voice.ImportFromProfile(c.Request.Context(), req.ProfileURL, req.Limit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"examples":        res.Examples,
		"fallback_manual": res.FallbackManual,
		"reason":          res.Reason,
	})
}

// GET /api/voice/examples
func (h *VoiceHandler) ListExamples(c *gin.Context) {
	out, err := h.voice.ListExamples(c.Request.Context(), queryBool(c, "include_archived"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"examples": out})
}

// DELETE /api/voice/examples/:id
func (h *VoiceHandler) ArchiveExample(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if err := h.voice.Archive(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"archived": id})
}

// GET /api/voice/status
func (h *VoiceHandler) Status(c *gin.Context) {
	st, err := h.voice.Status(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"active_examples": st.ActiveExamples,
		"min_examples":    st.MinExamples,
		"trained":         st.Trained,
		"profile":         st.Profile,
	})
}

// POST /api/voice/train
func (h *VoiceHandler) Train(c *gin.Context) {
	p, err := h.voice.Train(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}
