package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the public auth routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/auth")
	{
		group.POST("/register", h.register)
		group.POST("/login", h.login)
	}
}

// RegisterProtectedRoutes registers routes that need an authenticated caller
func (h *Handler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	group := router.Group("/auth")
	{
		group.GET("/me", h.me)
		group.PUT("/wallet", h.updateWallet)
	}
}

func (h *Handler) register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.WalletAddress != "" && !chain.IsValidAddress(input.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	profile, err := h.service.Register(c.Request.Context(), input)
	if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrInvalidRole) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": profile})
}

func (h *Handler) login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, profile, err := h.service.Login(c.Request.Context(), input.Email, input.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token, "profile": profile}})
}

func (h *Handler) me(c *gin.Context) {
	id, _ := c.Get("user_id")
	profile, err := h.service.GetProfile(c.Request.Context(), id.(uuid.UUID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": profile})
}

func (h *Handler) updateWallet(c *gin.Context) {
	var input struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !chain.IsValidAddress(input.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	id, _ := c.Get("user_id")
	profile, err := h.service.UpdateWallet(c.Request.Context(), id.(uuid.UUID), input.WalletAddress)
	if err != nil {
		h.logger.Error("wallet update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wallet update failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": profile})
}
