package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/services"
)

// AccountHandler serves the caller's quota and learned pattern views.
type AccountHandler struct {
	usage    services.UsageService
	patterns services.PatternService
}

func NewAccountHandler(usage services.UsageService, patterns services.PatternService) *AccountHandler {
	return &AccountHandler{usage: usage, patterns: patterns}
}

// GET /api/usage
func (h *AccountHandler) Usage(c *gin.Context) {
	out, err := h.usage.SummaryForRequestUser(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	rows := make([]gin.H, 0, len(out))
	for _, d := range out {
		rows = append(rows, gin.H{
			"action":  d.Action,
			"period":  d.Period,
			"used":    d.Used,
			"limit":   d.Limit,
			"allowed": d.Allowed,
		})
	}
	response.RespondOK(c, gin.H{"usage": rows})
}

// GET /api/patterns
func (h *AccountHandler) Patterns(c *gin.Context) {
	wp, err := h.patterns.GetForRequestUser(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pattern": wp})
}
