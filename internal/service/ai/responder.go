package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/analysis/reply"
	"github.com/zhouzirui/voice-twin/backend/internal/metrics"
	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// FallbackReply is returned when the model answers with empty content.
const FallbackReply = "I understand what you're saying!"

// Responder produces the AI Twin reply, mirroring the analyzed style.
type Responder struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
	opts      Options
}

// NewResponder creates the reply generator. A nil chatModel runs it in demo mode.
func NewResponder(chatModel model.BaseChatModel, opts Options) *Responder {
	return &Responder{
		chatModel: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.UserMessage("{query}"),
		),
		opts: opts.normalized(),
	}
}

// Enabled reports whether a language model is wired in.
func (r *Responder) Enabled() bool {
	return r != nil && r.chatModel != nil
}

// Generate returns the reply for userText. history is the conversation so far,
// oldest first; the pipeline stores the user turn before calling, so it is usually the last entry.
func (r *Responder) Generate(ctx context.Context, userText string, analysis voice.StyleAnalysis, history []journal.HistoryEntry) (string, error) {
	if !r.Enabled() {
		return r.heuristic(userText, analysis), nil
	}

	msgs, err := r.template.Format(ctx, map[string]any{
		"system": BuildReplySystemPrompt(analysis, history, r.opts.HistoryLimit),
		"query":  userText,
	})
	if err != nil {
		return "", fmt.Errorf("%w: format prompt: %w", ErrGenerationFailed, err)
	}

	callCtx, cancel := r.opts.callContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := r.chatModel.Generate(callCtx, msgs)
	metrics.RemoteLatency.WithLabelValues("reply").Observe(time.Since(start).Seconds())
	if err != nil {
		err = ClassifyError(err)
		metrics.RemoteFailures.WithLabelValues("reply", failureKind(err)).Inc()
		if errors.Is(err, ErrQuotaExceeded) {
			r.opts.Logger.Warn("reply generation quota exceeded, using heuristic generator", zap.Error(err))
			return r.heuristic(userText, analysis), nil
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	metrics.Replies.WithLabelValues(metrics.SourceRemote).Inc()
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return FallbackReply, nil
	}
	return strings.TrimSpace(resp.Content), nil
}

func (r *Responder) heuristic(userText string, analysis voice.StyleAnalysis) string {
	metrics.Replies.WithLabelValues(metrics.SourceHeuristic).Inc()
	return reply.GenerateWith(userText, analysis, r.opts.Source)
}
