package conversation

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/pkg/utils"
)

// Handler 会话相关的HTTP处理器
type Handler struct {
	journal *journalservice.Service
	logger  *zap.Logger
}

// New 创建会话处理器
func New(journal *journalservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{journal: journal, logger: logger}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations", h.handleList)
	r.Post("/conversations", h.handleCreate)
	r.Get("/conversations/{id}/messages", h.handleMessages)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.journal.ListConversations(r.Context())
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch conversations")
		return
	}
	utils.RespondJSON(w, http.StatusOK, conversations)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID *int64 `json:"userId"`
	}

	// 空请求体等价于匿名会话
	if err := utils.DecodeJSON(w, r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "Invalid conversation data")
		return
	}

	conversation, err := h.journal.CreateConversation(r.Context(), payload.UserID)
	if err != nil {
		h.logger.Error("create conversation failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conversation)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	messages, err := h.journal.ListMessages(r.Context(), id)
	if err != nil {
		h.logger.Error("list messages failed", zap.Int64("conversation_id", id), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}
