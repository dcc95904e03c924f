package voice

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/pkg/utils"
)

const (
	msgFieldsRequired       = "Text and conversation ID are required"
	msgConversationNotFound = "Conversation not found"
	msgProcessFailed        = "Failed to process voice message"
)

// Handler 语音日记流水线的HTTP入口
type Handler struct {
	journal *journalservice.Service
	logger  *zap.Logger
}

// New 创建语音处理器
func New(journal *journalservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{journal: journal, logger: logger}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/process-voice", h.handleProcess)
	r.Get("/voice-analytics", h.handleAnalytics)
}

// ConversationID accepts a JSON number or a numeric string.
type ConversationID int64

func (c *ConversationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*c = 0
			return nil
		}
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*c = ConversationID(id)
	return nil
}

type processPayload struct {
	Text           string         `json:"text"`
	ConversationID ConversationID `json:"conversationId"`
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var payload processPayload
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgFieldsRequired)
		return
	}

	result, err := h.journal.Process(r.Context(), journalservice.ProcessRequest{
		Text:           payload.Text,
		ConversationID: int64(payload.ConversationID),
	})
	if err != nil {
		status, message := ErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("process voice failed", zap.Error(err))
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := h.journal.DefaultUserID()
	if raw := r.URL.Query().Get("userId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		userID = parsed
	}

	analytics, err := h.journal.Analytics(r.Context(), userID)
	if err != nil {
		h.logger.Error("voice analytics failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	utils.RespondJSON(w, http.StatusOK, analytics)
}

// ErrorStatus maps a pipeline error to the HTTP status and client message.
// Internal failures get a generic message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, journalservice.ErrTextRequired), errors.Is(err, journalservice.ErrConversationRequired):
		return http.StatusBadRequest, msgFieldsRequired
	case errors.Is(err, journalservice.ErrConversationNotFound):
		return http.StatusNotFound, msgConversationNotFound
	default:
		return http.StatusInternalServerError, msgProcessFailed
	}
}
