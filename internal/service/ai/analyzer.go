package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/analysis/style"
	"github.com/zhouzirui/voice-twin/backend/internal/metrics"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// Options are shared by the analyzer and the responder.
type Options struct {
	// HistoryLimit caps how many prior messages the responder shows the model.
	HistoryLimit int
	// Timeout bounds each model call; zero leaves the request context in charge.
	Timeout time.Duration
	Logger  *zap.Logger
	// Source drives the pseudo-random parts of the heuristics.
	Source style.Source
}

func (o Options) normalized() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 6
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Source == nil {
		o.Source = style.DefaultSource
	}
	return o
}

func (o Options) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout > 0 {
		return context.WithTimeout(ctx, o.Timeout)
	}
	return ctx, func() {}
}

// Analyzer classifies the communication style of user text with the language
// model and degrades to the heuristic classifier when the quota runs out.
type Analyzer struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
	opts      Options
}

// NewAnalyzer creates the remote style analyzer. A nil chatModel runs it in demo mode.
func NewAnalyzer(chatModel model.BaseChatModel, opts Options) *Analyzer {
	return &Analyzer{
		chatModel: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(analyzerSystemPrompt),
			schema.UserMessage(analyzerUserPrompt),
		),
		opts: opts.normalized(),
	}
}

// Enabled reports whether a language model is wired in.
func (a *Analyzer) Enabled() bool {
	return a != nil && a.chatModel != nil
}

// Analyze returns the style analysis for text. Quota failures fall back to the
// heuristic classifier; every other failure is wrapped in ErrAnalysisFailed.
func (a *Analyzer) Analyze(ctx context.Context, text string) (voice.StyleAnalysis, error) {
	if !a.Enabled() {
		return a.heuristic(text), nil
	}

	msgs, err := a.template.Format(ctx, map[string]any{"text": text})
	if err != nil {
		return voice.StyleAnalysis{}, fmt.Errorf("%w: format prompt: %w", ErrAnalysisFailed, err)
	}

	callCtx, cancel := a.opts.callContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := a.chatModel.Generate(callCtx, msgs)
	metrics.RemoteLatency.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		err = ClassifyError(err)
		metrics.RemoteFailures.WithLabelValues("analyze", failureKind(err)).Inc()
		if errors.Is(err, ErrQuotaExceeded) {
			a.opts.Logger.Warn("style analysis quota exceeded, using heuristic classifier", zap.Error(err))
			return a.heuristic(text), nil
		}
		return voice.StyleAnalysis{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if resp == nil {
		return voice.StyleAnalysis{}, fmt.Errorf("%w: empty model response", ErrAnalysisFailed)
	}

	analysis, err := ParseAnalysis(resp.Content)
	if err != nil {
		metrics.RemoteFailures.WithLabelValues("analyze", "malformed").Inc()
		return voice.StyleAnalysis{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	metrics.StyleAnalyses.WithLabelValues(metrics.SourceRemote).Inc()
	return analysis, nil
}

func (a *Analyzer) heuristic(text string) voice.StyleAnalysis {
	metrics.StyleAnalyses.WithLabelValues(metrics.SourceHeuristic).Inc()
	return style.ClassifyWith(text, a.opts.Source)
}

type analysisPayload struct {
	Tone       *string  `json:"tone"`
	Style      *string  `json:"style"`
	Confidence *float64 `json:"confidence"`
	Sentiment  *string  `json:"sentiment"`
	Energy     *string  `json:"energy"`
}

// ParseAnalysis extracts the JSON object from model output. Missing fields take
// their defaults and confidence is clamped; output without a JSON object is an error.
func ParseAnalysis(content string) (voice.StyleAnalysis, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return voice.StyleAnalysis{}, errors.New("missing json object in model output")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return voice.StyleAnalysis{}, fmt.Errorf("decode model output: %w", err)
	}

	analysis := voice.StyleAnalysis{
		Tone:       textOr(payload.Tone, voice.DefaultTone),
		Style:      textOr(payload.Style, voice.DefaultStyle),
		Sentiment:  voice.ParseSentiment(textOr(payload.Sentiment, "")),
		Energy:     voice.ParseEnergy(textOr(payload.Energy, "")),
		Confidence: voice.DefaultConfidence,
	}
	if payload.Confidence != nil && *payload.Confidence != 0 {
		analysis.Confidence = *payload.Confidence
	}
	analysis.Confidence = voice.ClampConfidence(analysis.Confidence)
	return analysis, nil
}

func textOr(val *string, fallback string) string {
	if val == nil {
		return fallback
	}
	if trimmed := strings.ToLower(strings.TrimSpace(*val)); trimmed != "" {
		return trimmed
	}
	return fallback
}

const analyzerSystemPrompt = `You are a voice and communication style expert. Analyze the given text for communication patterns.
Respond with a single JSON object and nothing else. Fields:
- "tone": string, e.g. friendly, professional, casual, enthusiastic, curious, polite, concerned
- "style": string, e.g. conversational, formal, direct, diplomatic, inquisitive, detailed
- "confidence": number between 0 and 1, how confident you are in the analysis
- "sentiment": one of positive, negative, neutral
- "energy": one of high, medium, low`

const analyzerUserPrompt = `Analyze this text: "{text}"`
