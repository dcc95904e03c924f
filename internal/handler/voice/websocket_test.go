package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	voicemodel "github.com/zhouzirui/voice-twin/backend/internal/model/voice"
	"github.com/zhouzirui/voice-twin/backend/internal/service/ai"
	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/store"
)

type wireMessage struct {
	Type           string          `json:"type"`
	ConversationID int64           `json:"conversationId"`
	Data           json.RawMessage `json:"data"`
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketProcessesText(t *testing.T) {
	svc := demoService()
	conv, err := svc.CreateConversation(t.Context(), nil)
	require.NoError(t, err)

	server := httptest.NewServer(newRouter(svc))
	defer server.Close()

	conn := dial(t, server, "/ws/conversations/1")

	hello := readMessage(t, conn)
	assert.Equal(t, "info", hello.Type)
	assert.Equal(t, conv.ID, hello.ConversationID)
	assert.Contains(t, string(hello.Data), `"connected"`)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "Today was great!"}}))

	result := readMessage(t, conn)
	require.Equal(t, "result", result.Type)
	var payload journalservice.ProcessResult
	require.NoError(t, json.Unmarshal(result.Data, &payload))
	assert.Equal(t, "Today was great!", payload.UserMessage.Text)
	assert.False(t, payload.AIMessage.IsUser)

	msgs, err := svc.ListMessages(t.Context(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	svc := demoService()
	_, err := svc.CreateConversation(t.Context(), nil)
	require.NoError(t, err)

	server := httptest.NewServer(newRouter(svc))
	defer server.Close()

	conn := dial(t, server, "/ws/conversations/1")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Data), "unsupported message type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "   "}}))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Data), msgFieldsRequired)
}

func TestWebSocketUnknownConversation(t *testing.T) {
	server := httptest.NewServer(newRouter(demoService()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/conversations/9"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type slowResponder struct{ delay time.Duration }

func (s slowResponder) Generate(ctx context.Context, _ string, _ voicemodel.StyleAnalysis, _ []journal.HistoryEntry) (string, error) {
	select {
	case <-time.After(s.delay):
		return "ok", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestWebSocketSurvivesSlowPipeline(t *testing.T) {
	svc := journalservice.NewService(store.NewMemoryStore(), ai.NewAnalyzer(nil, ai.Options{}), slowResponder{delay: 600 * time.Millisecond}, journalservice.Config{}, nil)
	_, err := svc.CreateConversation(t.Context(), nil)
	require.NoError(t, err)

	h := NewWebSocketHandler(svc, nil)
	h.pongWait = 300 * time.Millisecond
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	conn := dial(t, server, "/ws/conversations/1")
	readMessage(t, conn)

	for _, text := range []string{"first thought", "second thought"} {
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": text}}))
		msg := readMessage(t, conn)
		require.Equal(t, "result", msg.Type, text)
	}
}
