package wallet

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
)

// Handler handles wallet HTTP requests
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers wallet routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/wallet")
	{
		group.GET("/balance", h.balance)
		group.POST("/transfer", h.transfer)
		group.GET("/portfolio", h.portfolio)
		group.GET("/transactions", h.transactions)
		group.GET("/export", h.export)
	}
}

func (h *Handler) balance(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
		return
	}

	balance, err := h.service.TokenBalance(c.Request.Context(), address)
	if errors.Is(err, chain.ErrInvalidAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("balance lookup failed", zap.String("address", address), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"address": address, "balance": balance}})
}

func (h *Handler) transfer(c *gin.Context) {
	var input struct {
		From    string `json:"from" binding:"required"`
		To      string `json:"to" binding:"required"`
		TokenID string `json:"token_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Transfer(c.Request.Context(), input.From, input.To, input.TokenID)
	if errors.Is(err, chain.ErrInvalidAddress) || errors.Is(err, chain.ErrInvalidTokenID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, ErrTransferUnsupported) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) portfolio(c *gin.Context) {
	portfolio, err := h.service.Portfolio(c.Request.Context(), callerID(c))
	if err != nil {
		h.logger.Error("portfolio lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "portfolio lookup failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": portfolio})
}

func (h *Handler) transactions(c *gin.Context) {
	portfolio, err := h.service.Portfolio(c.Request.Context(), callerID(c))
	if err != nil {
		h.logger.Error("transaction lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction lookup failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": portfolio.Transactions})
}

func (h *Handler) export(c *gin.Context) {
	workbook, err := h.service.ExportTransactions(c.Request.Context(), callerID(c))
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed", "details": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=transactions.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func callerID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
