package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/http/response"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/services"
)

type ActivityHandler struct {
	log        *logger.Logger
	activities services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activities services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		log:        log.With("handler", "ActivityHandler"),
		activities: activities,
	}
}

type activityView struct {
	*types.Activity
	Questions []types.Question `json:"questions"`
}

func activityViewOf(a *types.Activity) (activityView, error) {
	qs, err := a.DecodeQuestions()
	if err != nil {
		return activityView{}, err
	}
	if qs == nil {
		qs = []types.Question{}
	}
	return activityView{Activity: a, Questions: qs}, nil
}

func (h *ActivityHandler) respondActivities(c *gin.Context, status int, rows []*types.Activity, extra gin.H) {
	out := make([]activityView, 0, len(rows))
	for _, a := range rows {
		v, err := activityViewOf(a)
		if err != nil {
			h.log.Error("decode questions", "activity_id", a.ID, "error", err)
			response.RespondAppError(c, err)
			return
		}
		out = append(out, v)
	}
	body := gin.H{"activities": out}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

type generateRequest struct {
	TeacherID string `json:"teacher_id"`
	Grade     string `json:"grade"`
	Subject   string `json:"subject"`
	Length    string `json:"length"`
	Async     bool   `json:"async"`
}

// POST /api/textbooks/:id/activities/generate
func (h *ActivityHandler) Generate(c *gin.Context) {
	textbookID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	teacherID, err := uuid.Parse(strings.TrimSpace(req.TeacherID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_teacher_id", err)
		return
	}
	opts := services.GenerateOptions{Grade: req.Grade, Subject: req.Subject, Length: req.Length}
	rows, job, err := h.activities.Generate(c.Request.Context(), textbookID, teacherID, opts, req.Async)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if job != nil {
		response.RespondAccepted(c, gin.H{"job": job})
		return
	}
	h.respondActivities(c, http.StatusCreated, rows, nil)
}

// GET /api/textbooks/:id/activities
func (h *ActivityHandler) ListTextbookActivities(c *gin.Context) {
	textbookID, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	rows, err := h.activities.ListByTextbook(c.Request.Context(), textbookID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	h.respondActivities(c, http.StatusOK, rows, nil)
}

type createActivityRequest struct {
	ClassID     string             `json:"class_id"`
	TextbookID  string             `json:"textbook_id"`
	PageNumber  int                `json:"page_number"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        types.ActivityType `json:"type"`
	Questions   []types.Question   `json:"questions"`
	CreatedBy   string             `json:"created_by"`
}

// POST /api/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var ids [3]uuid.UUID
	for i, raw := range []string{req.ClassID, req.TextbookID, req.CreatedBy} {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		ids[i] = id
	}
	row, err := h.activities.Create(c.Request.Context(), services.ActivityInput{
		ClassID:     ids[0],
		TextbookID:  ids[1],
		PageNumber:  req.PageNumber,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Questions:   req.Questions,
		CreatedBy:   ids[2],
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	v, err := activityViewOf(row)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": v})
}

// GET /api/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	row, err := h.activities.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	v, err := activityViewOf(row)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": v})
}

// PUT /api/activities/:id/questions
func (h *ActivityHandler) UpdateQuestions(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	var req struct {
		Questions []types.Question `json:"questions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.activities.UpdateQuestions(c.Request.Context(), id, req.Questions)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	v, err := activityViewOf(row)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": v})
}

type submitRequest struct {
	StudentID string        `json:"student_id"`
	Answers   types.Answers `json:"answers"`
}

// POST /api/activities/:id/responses
func (h *ActivityHandler) Submit(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	studentID, err := uuid.Parse(strings.TrimSpace(req.StudentID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	resp, err := h.activities.Submit(c.Request.Context(), id, studentID, req.Answers)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"response": resp})
}

// GET /api/activities/:id/responses/:studentId
func (h *ActivityHandler) GetResponse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "studentId", "invalid_student_id")
	if !ok {
		return
	}
	resp, err := h.activities.GetResponse(c.Request.Context(), id, studentID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"response": resp})
}
