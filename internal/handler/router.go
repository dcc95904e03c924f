package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/handler/conversation"
	"github.com/zhouzirui/voice-twin/backend/internal/handler/stream"
	"github.com/zhouzirui/voice-twin/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/voice-twin/backend/internal/middleware"
	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the journal service.
func NewRouter(journal *journalservice.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	conversationHandler := conversation.New(journal, logger)
	voiceHandler := voice.New(journal, logger)
	wsHandler := voice.NewWebSocketHandler(journal, logger)
	streamHandler := stream.New(journal, logger)

	r.Route("/api", func(api chi.Router) {
		conversationHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
