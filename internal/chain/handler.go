package chain

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonchain/pkg/storage"
)

// Handler exposes the raw contract operations over HTTP, mirroring the
// platform's /api/blockchain surface.
type Handler struct {
	client Client
	store  storage.MetadataStore
	logger *zap.Logger
}

func NewHandler(client Client, store storage.MetadataStore, logger *zap.Logger) *Handler {
	return &Handler{client: client, store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bc := rg.Group("/blockchain")
	{
		bc.POST("/mint", h.Mint)
		bc.POST("/list", h.List)
		bc.POST("/buy", h.Buy)
		bc.POST("/retire", h.Retire)
		bc.POST("/register", h.Register)
	}
}

type mintRequest struct {
	ProjectID        string                 `json:"projectId"`
	RecipientAddress string                 `json:"recipientAddress"`
	CreditsAmount    int64                  `json:"creditsAmount"`
	VerificationData map[string]interface{} `json:"verificationData"`
}

func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ProjectID == "" || req.RecipientAddress == "" || req.CreditsAmount == 0 || req.VerificationData == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if !IsValidAddress(req.RecipientAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient address format"})
		return
	}

	key := fmt.Sprintf("metadata-%d.json", time.Now().UnixMilli())
	metadataURI, err := h.store.Upload(c.Request.Context(), key, map[string]interface{}{
		"projectId":        req.ProjectID,
		"verificationData": req.VerificationData,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("metadata upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mint carbon credits", "details": err.Error()})
		return
	}

	result, err := h.client.MintCredit(c.Request.Context(), req.RecipientAddress, req.CreditsAmount, metadataURI)
	if err != nil {
		h.logger.Error("mint failed", zap.String("project_id", req.ProjectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mint carbon credits", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tokenId":         result.TokenID,
			"transactionHash": result.TransactionHash,
			"metadataURI":     metadataURI,
			"creditsAmount":   req.CreditsAmount,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

type listRequest struct {
	TokenID      string  `json:"tokenId"`
	PriceInMatic float64 `json:"priceInMatic"`
}

func (h *Handler) List(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.TokenID == "" || req.PriceInMatic == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	txHash, err := h.client.ListCredit(c.Request.Context(), req.TokenID, MaticToWei(req.PriceInMatic))
	if err != nil {
		h.logger.Error("list failed", zap.String("token_id", req.TokenID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list credit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tokenId":         req.TokenID,
			"priceInMatic":    req.PriceInMatic,
			"transactionHash": txHash,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

type tokenRequest struct {
	TokenID string `json:"tokenId"`
}

func (h *Handler) Buy(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tokenId"})
		return
	}

	txHash, err := h.client.BuyCredit(c.Request.Context(), req.TokenID)
	if err != nil {
		h.logger.Error("buy failed", zap.String("token_id", req.TokenID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to buy credit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tokenId":         req.TokenID,
			"transactionHash": txHash,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *Handler) Retire(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing tokenId"})
		return
	}

	txHash, err := h.client.RetireCredit(c.Request.Context(), req.TokenID)
	if err != nil {
		h.logger.Error("retire failed", zap.String("token_id", req.TokenID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retire credit", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tokenId":         req.TokenID,
			"transactionHash": txHash,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

type registerRequest struct {
	ProjectData map[string]interface{} `json:"projectData"`
	NGOAddress  string                 `json:"ngoAddress"`
}

// Register uploads project metadata ahead of verification. The on-chain
// registration happens later, when a verifier approves and mints.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ProjectData == nil || req.NGOAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	projectID := fmt.Sprintf("PROJ-%d-%s", time.Now().Year(), uuid.New().String()[:8])
	payload := make(map[string]interface{}, len(req.ProjectData)+2)
	for k, v := range req.ProjectData {
		payload[k] = v
	}
	payload["projectId"] = projectID
	payload["submissionDate"] = time.Now().UTC().Format(time.RFC3339)

	metadataURI, err := h.store.Upload(c.Request.Context(), fmt.Sprintf("registration-%s.json", projectID), payload)
	if err != nil {
		h.logger.Error("registration upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register project", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"projectId":   projectID,
			"metadataURI": metadataURI,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}
