package stream

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	voicehandler "github.com/zhouzirui/voice-twin/backend/internal/handler/voice"
	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/pkg/utils"
)

// Handler streams each pipeline stage of one journal entry as Server-Sent Events.
type Handler struct {
	journal *journalservice.Service
	logger  *zap.Logger
}

// New creates a new stream handler
func New(journal *journalservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{journal: journal, logger: logger}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{conversationID}", h.handleStream)
}

// EndEvent closes a successful stream.
type EndEvent struct {
	ConversationID int64 `json:"conversationId"`
	Finished       bool  `json:"finished"`
}

// ErrorEvent reports a failure after the stream has started.
type ErrorEvent struct {
	Error string `json:"error"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	logger := h.logger.With(zap.Int64("conversation_id", conversationID))
	var writeErr error
	_, err = h.journal.Process(r.Context(), journalservice.ProcessRequest{
		Text:           text,
		ConversationID: conversationID,
		OnStage: func(stage journalservice.Stage, payload any) {
			if writeErr != nil {
				return
			}
			writeErr = sse.Event(string(stage), payload)
		},
	})

	switch {
	case err != nil && !sse.Started():
		// 尚未写出任何事件，仍可返回普通的 JSON 错误
		status, message := voicehandler.ErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("stream process failed", zap.Error(err))
		}
		utils.RespondError(w, status, message)
	case err != nil:
		logger.Error("stream process failed mid-stream", zap.Error(err))
		_, message := voicehandler.ErrorStatus(err)
		h.finish(logger, sse.Event("error", ErrorEvent{Error: message}))
	case writeErr != nil:
		h.finish(logger, writeErr)
	default:
		h.finish(logger, sse.Event("end", EndEvent{ConversationID: conversationID, Finished: true}))
	}
}

func (h *Handler) finish(logger *zap.Logger, err error) {
	if err == nil {
		logger.Debug("stream completed")
		return
	}
	logger.Warn("stream write failed", zap.Error(err))
}
