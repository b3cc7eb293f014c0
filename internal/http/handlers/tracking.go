package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/textbook-backend/internal/http/response"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/services"
)

type TrackingHandler struct {
	log     *logger.Logger
	tracker services.ReadingTracker
}

func NewTrackingHandler(log *logger.Logger, tracker services.ReadingTracker) *TrackingHandler {
	return &TrackingHandler{
		log:     log.With("handler", "TrackingHandler"),
		tracker: tracker,
	}
}

type pageViewRequest struct {
	StudentID  string `json:"student_id"`
	PageNumber int    `json:"page_number"`
}

// POST /api/textbooks/:id/views
func (h *TrackingHandler) RecordView(c *gin.Context) {
	docID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	var req pageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	studentID, err := uuid.Parse(strings.TrimSpace(req.StudentID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	if err := h.tracker.RecordView(c.Request.Context(), studentID, docID, req.PageNumber); err != nil {
		response.RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/textbooks/:id/readers
// Current page per student, keyed by student id.
func (h *TrackingHandler) CurrentReaders(c *gin.Context) {
	docID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	current, err := h.tracker.Current(c.Request.Context(), docID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	out := make(map[string]int, len(current))
	for id, page := range current {
		out[id.String()] = page
	}
	response.RespondOK(c, gin.H{"readers": out})
}

// GET /api/textbooks/:id/views/:studentId
func (h *TrackingHandler) History(c *gin.Context) {
	docID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "studentId", "invalid_student_id")
	if !ok {
		return
	}
	events, err := h.tracker.History(c.Request.Context(), docID, studentID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"views": events})
}
