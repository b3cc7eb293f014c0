package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/textbook-backend/internal/domain"
	"github.com/yungbote/textbook-backend/internal/http/response"
	apperr "github.com/yungbote/textbook-backend/internal/pkg/errors"
	"github.com/yungbote/textbook-backend/internal/pkg/logger"
	"github.com/yungbote/textbook-backend/internal/platform/storage"
	"github.com/yungbote/textbook-backend/internal/services"
)

const maxUploadBytes = 64 << 20

type TextbookHandler struct {
	log       *logger.Logger
	textbooks services.TextbookService
	search    services.ContentSearch
	store     storage.Storage
}

func NewTextbookHandler(
	log *logger.Logger,
	textbooks services.TextbookService,
	search services.ContentSearch,
	store storage.Storage,
) *TextbookHandler {
	return &TextbookHandler{
		log:       log.With("handler", "TextbookHandler"),
		textbooks: textbooks,
		search:    search,
		store:     store,
	}
}

type registerTextbookRequest struct {
	ClassID     string `json:"class_id"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storage_path"`
	UploadedBy  string `json:"uploaded_by"`
	Size        int64  `json:"size"`
	Grade       string `json:"grade"`
	Subject     string `json:"subject"`
}

// textbookView omits the parsed pages; clients fetch them one at a time.
type textbookView struct {
	ID              uuid.UUID `json:"id"`
	ClassID         uuid.UUID `json:"class_id"`
	Filename        string    `json:"filename"`
	Status          string    `json:"status"`
	TotalPages      int       `json:"total_pages"`
	SourcePageCount int       `json:"source_page_count"`
	Size            int64     `json:"size"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
}

func viewOf(d *types.TextbookDocument) textbookView {
	return textbookView{
		ID:              d.ID,
		ClassID:         d.ClassID,
		Filename:        d.Filename,
		Status:          d.Status,
		TotalPages:      d.TotalPages,
		SourcePageCount: d.SourcePageCount,
		Size:            d.Size,
		Error:           d.Error,
		CreatedAt:       d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// POST /api/textbooks
// Registers a file the upload gateway already stored.
func (h *TextbookHandler) RegisterTextbook(c *gin.Context) {
	var req registerTextbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	classID, err := uuid.Parse(strings.TrimSpace(req.ClassID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
		return
	}
	uploadedBy, err := uuid.Parse(strings.TrimSpace(req.UploadedBy))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_uploaded_by", err)
		return
	}
	doc, job, err := h.textbooks.Register(c.Request.Context(), services.UploadInput{
		ClassID:     classID,
		Filename:    req.Filename,
		StoragePath: req.StoragePath,
		UploadedBy:  uploadedBy,
		Size:        req.Size,
		Grade:       req.Grade,
		Subject:     req.Subject,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"textbook": viewOf(doc), "job": job})
}

// POST /api/classes/:classId/textbooks/upload
// Multipart form: file, uploaded_by, optional grade and subject.
func (h *TextbookHandler) UploadTextbook(c *gin.Context) {
	classID, err := uuid.Parse(c.Param("classId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_class_id", err)
		return
	}
	uploadedBy, err := uuid.Parse(strings.TrimSpace(c.PostForm("uploaded_by")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_uploaded_by", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxUploadBytes))
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_type", fmt.Errorf("only .pdf uploads are accepted"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	path := fmt.Sprintf("uploads/%s/%s.pdf", classID, uuid.New())
	if err := h.store.Write(c.Request.Context(), path, f); err != nil {
		h.log.Error("upload write failed", "path", path, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", fmt.Errorf("could not store file"))
		return
	}

	doc, job, err := h.textbooks.Register(c.Request.Context(), services.UploadInput{
		ClassID:     classID,
		Filename:    filepath.Base(fh.Filename),
		StoragePath: path,
		UploadedBy:  uploadedBy,
		Size:        fh.Size,
		Grade:       c.PostForm("grade"),
		Subject:     c.PostForm("subject"),
	})
	if err != nil {
		if delErr := h.store.Delete(c.Request.Context(), path); delErr != nil {
			h.log.Warn("orphaned upload", "path", path, "error", delErr)
		}
		response.RespondAppError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"textbook": viewOf(doc), "job": job})
}

// GET /api/textbooks/:id
func (h *TextbookHandler) GetTextbook(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	doc, err := h.textbooks.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"textbook": viewOf(doc)})
}

// GET /api/classes/:classId/textbooks
func (h *TextbookHandler) ListClassTextbooks(c *gin.Context) {
	classID, ok := uuidParam(c, "classId", "invalid_class_id")
	if !ok {
		return
	}
	docs, err := h.textbooks.ListByClass(c.Request.Context(), classID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	out := make([]textbookView, 0, len(docs))
	for _, d := range docs {
		out = append(out, viewOf(d))
	}
	response.RespondOK(c, gin.H{"textbooks": out})
}

// DELETE /api/textbooks/:id
func (h *TextbookHandler) DeleteTextbook(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	if err := h.textbooks.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/textbooks/:id/pages/:page
func (h *TextbookHandler) GetPage(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	n, ok := pageParam(c)
	if !ok {
		return
	}
	page, err := h.textbooks.Page(c.Request.Context(), id, n)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"page": page})
}

// GET /api/textbooks/:id/pages/:page/insights
func (h *TextbookHandler) GetInsights(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	n, ok := pageParam(c)
	if !ok {
		return
	}
	text, err := h.textbooks.Insights(c.Request.Context(), id, n)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"pageNumber": n, "insights": text})
}

// GET /api/textbooks/:id/search?q=
func (h *TextbookHandler) Search(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_textbook_id")
	if !ok {
		return
	}
	results, err := h.search.Search(c.Request.Context(), id, c.Query("q"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": results})
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func pageParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("page"))
	if err != nil || n < 1 {
		response.RespondAppError(c, apperr.Validation("handlers.pageParam", "page must be a positive integer, got %q", c.Param("page")))
		return 0, false
	}
	return n, true
}
