package marketplace

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/projects"
)

// Handler handles marketplace HTTP requests
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers marketplace routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/marketplace")
	{
		group.GET("/listings", h.listings)
		group.POST("/purchase", h.purchase)
	}
}

func (h *Handler) listings(c *gin.Context) {
	list, err := h.service.Listings(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load listings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listings", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list})
}

func (h *Handler) purchase(c *gin.Context) {
	var input struct {
		ProjectID     string `json:"project_id" binding:"required"`
		Quantity      int64  `json:"quantity" binding:"required"`
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	buyerID := uuid.Nil
	if v, ok := c.Get("user_id"); ok {
		if uid, ok := v.(uuid.UUID); ok {
			buyerID = uid
		}
	}

	result, err := h.service.Purchase(c.Request.Context(), buyerID, projectID, input.Quantity, input.WalletAddress)
	switch {
	case errors.Is(err, projects.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrNotPurchasable),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, projects.ErrInsufficientCredits),
		errors.Is(err, chain.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("purchase failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase failed", "details": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
	}
}
