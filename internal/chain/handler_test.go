package chain_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbonchain/internal/chain"
	"carbonchain/internal/chain/chaintest"
	"carbonchain/pkg/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *chaintest.MockClient, *storage.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := &chaintest.MockClient{}
	store := storage.NewMemoryStore()
	handler := chain.NewHandler(client, store, zap.NewNop())

	router := gin.New()
	api := router.Group("/api")
	handler.RegisterRoutes(api)
	return router, client, store
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMintEndpoint_Success(t *testing.T) {
	router, client, _ := newTestRouter(t)

	client.On("MintCredit", mock.Anything, "0x087573bec726A13d77F521318b3FD7dE3c830988",
		int64(400), mock.AnythingOfType("string")).
		Return(&chain.MintResult{TransactionHash: "0xmint", TokenID: "7"}, nil)

	rec := postJSON(router, "/api/blockchain/mint", gin.H{
		"projectId":        "PROJ-2026-abc",
		"recipientAddress": "0x087573bec726A13d77F521318b3FD7dE3c830988",
		"creditsAmount":    400,
		"verificationData": gin.H{"verifier": "admin"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			TokenID         string `json:"tokenId"`
			TransactionHash string `json:"transactionHash"`
			MetadataURI     string `json:"metadataURI"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "7", resp.Data.TokenID)
	assert.Equal(t, "0xmint", resp.Data.TransactionHash)
	assert.NotEmpty(t, resp.Data.MetadataURI)
	client.AssertExpectations(t)
}

func TestMintEndpoint_RejectsBadAddress(t *testing.T) {
	router, client, _ := newTestRouter(t)

	rec := postJSON(router, "/api/blockchain/mint", gin.H{
		"projectId":        "PROJ-2026-abc",
		"recipientAddress": "not-an-address",
		"creditsAmount":    400,
		"verificationData": gin.H{"verifier": "admin"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid recipient address")
	client.AssertNotCalled(t, "MintCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMintEndpoint_RejectsMissingFields(t *testing.T) {
	router, client, _ := newTestRouter(t)

	rec := postJSON(router, "/api/blockchain/mint", gin.H{
		"recipientAddress": "0x087573bec726A13d77F521318b3FD7dE3c830988",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	client.AssertNotCalled(t, "MintCredit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetireEndpoint(t *testing.T) {
	router, client, _ := newTestRouter(t)

	client.On("RetireCredit", mock.Anything, "7").Return("0xburn", nil)

	rec := postJSON(router, "/api/blockchain/retire", gin.H{"tokenId": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0xburn")
}

func TestRegisterEndpoint_UploadsMetadata(t *testing.T) {
	router, _, store := newTestRouter(t)

	rec := postJSON(router, "/api/blockchain/register", gin.H{
		"projectData": gin.H{"title": "Mangrove Restoration"},
		"ngoAddress":  "0x087573bec726A13d77F521318b3FD7dE3c830988",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			ProjectID   string `json:"projectId"`
			MetadataURI string `json:"metadataURI"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Regexp(t, `^PROJ-\d{4}-[0-9a-f]{8}$`, resp.Data.ProjectID)

	_, ok := store.Get("registration-" + resp.Data.ProjectID + ".json")
	assert.True(t, ok)
}
