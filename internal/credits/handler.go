package credits

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles credit HTTP requests
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers credit routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/credits")
	{
		group.GET("", h.listCredits)
		group.GET("/:id", h.getCredit)
		group.GET("/:id/price", h.listingPrice)
		group.POST("/:id/list", h.listOnChain)
		group.POST("/:id/retire", h.retireCredit)
	}
}

func (h *Handler) listCredits(c *gin.Context) {
	filter := CreditFilter{Limit: 100}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []string{status}
	}
	if projectID := c.Query("project_id"); projectID != "" {
		id, err := uuid.Parse(projectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		filter.ProjectID = &id
	}

	credits, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list credits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list credits", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": credits})
}

func (h *Handler) getCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit id"})
		return
	}

	credit, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get credit", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": credit})
}

func (h *Handler) listingPrice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit id"})
		return
	}

	price, err := h.service.ListingPrice(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to read listing price", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read listing price", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"priceWei": price.String()}})
}

func (h *Handler) listOnChain(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit id"})
		return
	}
	var input struct {
		PriceMatic float64 `json:"price_matic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	credit, txHash, err := h.service.ListOnChain(c.Request.Context(), id, input.PriceMatic)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyRetired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"credit":          credit,
		"transactionHash": txHash,
	}})
}

func (h *Handler) retireCredit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit id"})
		return
	}
	var input struct {
		RetiredBy string `json:"retired_by"`
	}
	_ = c.ShouldBindJSON(&input)

	callerID := uuid.Nil
	if v, ok := c.Get("user_id"); ok {
		if uid, ok := v.(uuid.UUID); ok {
			callerID = uid
		}
	}

	result, err := h.service.Retire(c.Request.Context(), callerID, id, input.RetiredBy)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	}
	if errors.Is(err, ErrAlreadyRetired) || errors.Is(err, ErrNotOwner) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("retirement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retirement failed", "details": err.Error()})
		return
	}

	if c.Query("certificate") == "pdf" && len(result.Certificate) > 0 {
		c.Header("Content-Disposition", "attachment; filename=retirement-certificate.pdf")
		c.Data(http.StatusOK, "application/pdf", result.Certificate)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"credit":          result.Credit,
		"transactionHash": result.TransactionHash,
	}})
}
