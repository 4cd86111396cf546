package issuance

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/projects"
)

// Handler exposes the admin review endpoints
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the review operations under the projects resource.
// The caller is expected to gate this group with the admin role.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/projects")
	{
		group.POST("/:id/approve", h.approveProject)
		group.POST("/:id/reject", h.rejectProject)
	}
}

func (h *Handler) approveProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var input struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&input)

	approvedBy := uuid.Nil
	if v, ok := c.Get("user_id"); ok {
		if uid, ok := v.(uuid.UUID); ok {
			approvedBy = uid
		}
	}

	result, err := h.service.Approve(c.Request.Context(), id, input.Notes, approvedBy)
	switch {
	case errors.Is(err, projects.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.Is(err, projects.ErrInvalidTransition), errors.Is(err, ErrAlreadyIssued):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("approval failed", zap.String("project_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approval failed", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
	}
}

func (h *Handler) rejectProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var input struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejection notes are required"})
		return
	}

	project, err := h.service.Reject(c.Request.Context(), id, input.Notes)
	switch {
	case errors.Is(err, projects.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.Is(err, ErrNotesRequired), errors.Is(err, projects.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("rejection failed", zap.String("project_id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rejection failed", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": project})
	}
}
