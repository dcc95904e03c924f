package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/pkg/utils"
)

const (
	defaultPongWait = 60 * time.Second
	writeWait       = 10 * time.Second
)

// WebSocketHandler 实时语音日记：浏览器持续推送转写文本，服务端逐条跑流水线。
type WebSocketHandler struct {
	journal  *journalservice.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// pongWait 读超时，ping 间隔取其九成
	pongWait time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(journal *journalservice.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		journal:  journal,
		logger:   logger,
		pongWait: defaultPongWait,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/conversations/{conversationID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 浏览器端转写出的一段文本
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type           string `json:"type"`
	ConversationID int64  `json:"conversationId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

type connectionState struct {
	id             string
	conversationID int64
	logger         *zap.Logger
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil || conversationID <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	if _, ok, err := h.journal.GetConversation(r.Context(), conversationID); err != nil {
		h.logger.Error("websocket conversation lookup failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to open conversation")
		return
	} else if !ok {
		utils.RespondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	state := &connectionState{id: uuid.NewString(), conversationID: conversationID}
	state.logger = h.logger.With(zap.String("connection_id", state.id), zap.Int64("conversation_id", conversationID))
	state.logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, state, "info", map[string]any{
		"type":         "connected",
		"connectionId": state.id,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				state.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.pongWait))

		h.handleMessage(ctx, conn, state, &msg)
		// 远程调用可能超过 pongWait，处理完再续一次
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	default:
		h.sendError(conn, state, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if len(raw) == 0 || json.Unmarshal(raw, &text) != nil {
		h.sendError(conn, state, "invalid text payload")
		return
	}

	result, err := h.journal.Process(ctx, journalservice.ProcessRequest{
		Text:           text.Text,
		ConversationID: state.conversationID,
	})
	if err != nil {
		status, message := ErrorStatus(err)
		if status == http.StatusInternalServerError {
			state.logger.Error("websocket process failed", zap.Error(err))
		}
		h.sendError(conn, state, message)
		return
	}

	h.send(conn, state, "result", result)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, state *connectionState, kind string, data any) {
	msg := outgoingMessage{
		Type:           kind,
		ConversationID: state.conversationID,
		Data:           data,
		Timestamp:      time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		state.logger.Warn("websocket write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, state *connectionState, message string) {
	h.send(conn, state, "error", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息；WriteControl 可与 WriteJSON 并发调用。
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
