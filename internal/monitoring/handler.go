package monitoring

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles monitoring HTTP requests
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers monitoring routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/monitoring")
	{
		group.GET("/satellite", h.satellite)
		group.POST("/analysis", h.analysis)
		group.GET("/alerts", h.alerts)
	}
}

func (h *Handler) satellite(c *gin.Context) {
	projectID, ok := parseProjectID(c, c.Query("project_id"))
	if !ok {
		return
	}
	months := 6
	if m := c.Query("months"); m != "" {
		if parsed, err := strconv.Atoi(m); err == nil && parsed > 0 && parsed <= 24 {
			months = parsed
		}
	}

	observations, err := h.service.Satellite(c.Request.Context(), projectID, months)
	if err != nil {
		h.logger.Error("satellite lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "satellite lookup failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": observations})
}

func (h *Handler) analysis(c *gin.Context) {
	var input struct {
		ProjectID string `json:"project_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	projectID, ok := parseProjectID(c, input.ProjectID)
	if !ok {
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": analysis})
}

func (h *Handler) alerts(c *gin.Context) {
	projectID, ok := parseProjectID(c, c.Query("project_id"))
	if !ok {
		return
	}

	alerts, err := h.service.Alerts(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("alert lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alert lookup failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

func parseProjectID(c *gin.Context, raw string) (uuid.UUID, bool) {
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return uuid.Nil, false
	}
	return id, true
}
