package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/http/response"
	"github.com/yungbote/textbook-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := uuidParam(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if job == nil {
		response.RespondAppError(c, apperr.NotFound("JobHandler.GetJob", "job"))
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/textbooks/:id/job
// Latest processing job for the textbook.
func (h *JobHandler) GetTextbookJob(c *gin.Context) {
	docID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetLatestForEntity(dbctx.Context{Ctx: c.Request.Context()}, services.EntityTextbook, docID, types.JobTypeTextbookProcess)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if job == nil {
		response.RespondAppError(c, apperr.NotFound("JobHandler.GetTextbookJob", "job"))
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
