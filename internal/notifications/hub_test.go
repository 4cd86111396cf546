package notifications

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_PublishReachesSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())

	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// wait for the hub to register the client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Publish(EventCreditMinted, map[string]string{"token_id": "7"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, EventCreditMinted, event.Type)
}

func TestHub_NilSafe(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() {
		hub.Publish(EventAlertTriggered, nil)
	})
	assert.Equal(t, 0, hub.ClientCount())
}
