package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/postvoice-backend/internal/http/response"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	out, err := h.jobs.ListForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, c.Query("job_type"), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": out})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	job, err := h.jobs.GetByIDForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
