// Package journal runs the voice journaling pipeline: analyze the user's text,
// store it, answer as the AI Twin and fold the analysis into the voice profile.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/analysis/profile"
	"github.com/zhouzirui/voice-twin/backend/internal/metrics"
	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
	"github.com/zhouzirui/voice-twin/backend/internal/store"
)

var (
	ErrTextRequired         = errors.New("text is required")
	ErrConversationRequired = errors.New("conversation id is required")
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	defaultUserID          int64 = 1
	defaultAnalyticsWindow       = 20
)

// StyleAnalyzer classifies the communication style of a piece of text.
type StyleAnalyzer interface {
	Analyze(ctx context.Context, text string) (voice.StyleAnalysis, error)
}

// ReplyGenerator answers the user in their own style.
type ReplyGenerator interface {
	Generate(ctx context.Context, userText string, analysis voice.StyleAnalysis, history []journal.HistoryEntry) (string, error)
}

// Stage names a pipeline step reported to a StageFunc.
type Stage string

const (
	StageAnalysis    Stage = "analysis"
	StageUserMessage Stage = "userMessage"
	StageAIMessage   Stage = "aiMessage"
	StageProfile     Stage = "profile"
)

// StageFunc observes intermediate pipeline output. payload is a
// voice.StyleAnalysis, a journal.Message or a voice.Profile depending on stage.
type StageFunc func(stage Stage, payload any)

// Config tunes the pipeline.
type Config struct {
	// DefaultUserID owns the profile of conversations without a user.
	DefaultUserID int64
	// AnalyticsWindow is how many recent messages analytics look at.
	AnalyticsWindow int
}

// ProcessRequest is one spoken (already transcribed) journal entry.
type ProcessRequest struct {
	Text           string
	ConversationID int64
	OnStage        StageFunc
}

// ProcessResult is what the client gets back for one entry.
type ProcessResult struct {
	UserMessage   journal.Message     `json:"userMessage"`
	AIMessage     journal.Message     `json:"aiMessage"`
	VoiceAnalysis voice.StyleAnalysis `json:"voiceAnalysis"`
}

// Analytics summarises a user's profile and the recent analyses.
type Analytics struct {
	Profile        *voice.SpeechPatterns `json:"profile"`
	RecentAnalysis RecentAnalysis        `json:"recentAnalysis"`
}

// RecentAnalysis aggregates the analyses of recent user messages.
type RecentAnalysis struct {
	TotalMessages     int      `json:"totalMessages"`
	CommonTones       []string `json:"commonTones"`
	CommonStyles      []string `json:"commonStyles"`
	AverageConfidence float64  `json:"averageConfidence"`
}

// Service wires the store with the analyzer and the responder.
type Service struct {
	store     store.Store
	analyzer  StyleAnalyzer
	responder ReplyGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewService creates the journal pipeline.
func NewService(st store.Store, analyzer StyleAnalyzer, responder ReplyGenerator, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultUserID <= 0 {
		cfg.DefaultUserID = defaultUserID
	}
	if cfg.AnalyticsWindow <= 0 {
		cfg.AnalyticsWindow = defaultAnalyticsWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		analyzer:  analyzer,
		responder: responder,
		cfg:       cfg,
		logger:    logger,
	}
}

// DefaultUserID is the user analytics fall back to.
func (s *Service) DefaultUserID() int64 {
	return s.cfg.DefaultUserID
}

// Process runs one entry through the pipeline. Steps run in order and a failure
// leaves earlier side effects (such as the stored user message) in place.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ProcessResult{}, ErrTextRequired
	}
	if req.ConversationID <= 0 {
		return ProcessResult{}, ErrConversationRequired
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.Int64("conversation_id", req.ConversationID))
	emit := req.OnStage
	if emit == nil {
		emit = func(Stage, any) {}
	}

	conversation, ok, err := s.store.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("load conversation: %w", err)
	}
	if !ok {
		return ProcessResult{}, ErrConversationNotFound
	}

	analysis, err := s.analyzer.Analyze(ctx, req.Text)
	if err != nil {
		logger.Error("style analysis failed", zap.Error(err))
		return ProcessResult{}, err
	}
	emit(StageAnalysis, analysis)

	userMessage, err := s.store.CreateMessage(ctx, store.NewMessage{
		ConversationID: conversation.ID,
		IsUser:         true,
		Text:           req.Text,
		StyleAnalysis:  &analysis,
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("store user message: %w", err)
	}
	emit(StageUserMessage, userMessage)

	messages, err := s.store.ListMessages(ctx, conversation.ID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("load history: %w", err)
	}

	replyText, err := s.responder.Generate(ctx, req.Text, analysis, journal.History(messages))
	if err != nil {
		logger.Error("reply generation failed", zap.Error(err))
		return ProcessResult{}, err
	}

	aiMessage, err := s.store.CreateMessage(ctx, store.NewMessage{
		ConversationID: conversation.ID,
		IsUser:         false,
		Text:           replyText,
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("store ai message: %w", err)
	}
	emit(StageAIMessage, aiMessage)

	userID := s.cfg.DefaultUserID
	if conversation.UserID != nil {
		userID = *conversation.UserID
	}
	updated, err := s.updateProfile(ctx, userID, analysis)
	if err != nil {
		return ProcessResult{}, err
	}
	emit(StageProfile, updated)

	logger.Info("journal entry processed",
		zap.Int64("user_message_id", userMessage.ID),
		zap.Int64("ai_message_id", aiMessage.ID),
		zap.String("tone", analysis.Tone),
		zap.String("style", analysis.Style),
	)

	return ProcessResult{
		UserMessage:   userMessage,
		AIMessage:     aiMessage,
		VoiceAnalysis: analysis,
	}, nil
}

// updateProfile folds analysis into the user's profile, creating it on first use.
// Concurrent writers are last-write-wins.
func (s *Service) updateProfile(ctx context.Context, userID int64, analysis voice.StyleAnalysis) (voice.Profile, error) {
	existing, ok, err := s.store.GetVoiceProfile(ctx, userID)
	if err != nil {
		return voice.Profile{}, fmt.Errorf("load voice profile: %w", err)
	}

	if ok {
		patterns := profile.Update(&existing.SpeechPatterns, analysis)
		updated, found, err := s.store.UpdateVoiceProfile(ctx, userID, patterns)
		if err != nil {
			return voice.Profile{}, fmt.Errorf("update voice profile: %w", err)
		}
		if found {
			metrics.ProfileUpdates.Inc()
			return updated, nil
		}
	}

	patterns := profile.Update(nil, analysis)
	created, err := s.store.CreateVoiceProfile(ctx, userID, patterns)
	if errors.Is(err, store.ErrProfileExists) {
		// 并发请求先创建了档案，重新读取后在其基础上合并。
		winner, found, gerr := s.store.GetVoiceProfile(ctx, userID)
		if gerr != nil {
			return voice.Profile{}, fmt.Errorf("load voice profile: %w", gerr)
		}
		if found {
			patterns = profile.Update(&winner.SpeechPatterns, analysis)
		}
		updated, _, uerr := s.store.UpdateVoiceProfile(ctx, userID, patterns)
		if uerr != nil {
			return voice.Profile{}, fmt.Errorf("update voice profile: %w", uerr)
		}
		metrics.ProfileUpdates.Inc()
		return updated, nil
	}
	if err != nil {
		return voice.Profile{}, fmt.Errorf("create voice profile: %w", err)
	}
	metrics.ProfileUpdates.Inc()
	return created, nil
}

// Analytics reports the user's profile and a summary of the recent analyses.
// The recent window spans all conversations.
func (s *Service) Analytics(ctx context.Context, userID int64) (Analytics, error) {
	if userID <= 0 {
		userID = s.cfg.DefaultUserID
	}

	result := Analytics{
		RecentAnalysis: RecentAnalysis{CommonTones: []string{}, CommonStyles: []string{}},
	}

	p, ok, err := s.store.GetVoiceProfile(ctx, userID)
	if err != nil {
		return Analytics{}, fmt.Errorf("load voice profile: %w", err)
	}
	if ok {
		patterns := p.SpeechPatterns
		result.Profile = &patterns
	}

	recent, err := s.store.RecentMessages(ctx, s.cfg.AnalyticsWindow)
	if err != nil {
		return Analytics{}, fmt.Errorf("load recent messages: %w", err)
	}

	seenTones := make(map[string]struct{})
	seenStyles := make(map[string]struct{})
	var total float64
	for _, msg := range recent {
		if !msg.IsUser || msg.StyleAnalysis == nil {
			continue
		}
		a := msg.StyleAnalysis
		result.RecentAnalysis.TotalMessages++
		total += a.Confidence
		result.RecentAnalysis.CommonTones = appendUnique(result.RecentAnalysis.CommonTones, seenTones, a.Tone)
		result.RecentAnalysis.CommonStyles = appendUnique(result.RecentAnalysis.CommonStyles, seenStyles, a.Style)
	}
	if n := result.RecentAnalysis.TotalMessages; n > 0 {
		result.RecentAnalysis.AverageConfidence = total / float64(n)
	}

	return result, nil
}

func appendUnique(list []string, seen map[string]struct{}, value string) []string {
	if value == "" {
		return list
	}
	if _, ok := seen[value]; ok {
		return list
	}
	seen[value] = struct{}{}
	return append(list, value)
}

// CreateConversation starts a new conversation, optionally owned by userID.
func (s *Service) CreateConversation(ctx context.Context, userID *int64) (journal.Conversation, error) {
	conversation, err := s.store.CreateConversation(ctx, userID)
	if err != nil {
		return journal.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.logger.Info("conversation created", zap.Int64("conversation_id", conversation.ID))
	return conversation, nil
}

// GetConversation looks up a conversation; ok is false when it does not exist.
func (s *Service) GetConversation(ctx context.Context, id int64) (journal.Conversation, bool, error) {
	conversation, ok, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return journal.Conversation{}, false, fmt.Errorf("load conversation: %w", err)
	}
	return conversation, ok, nil
}

// ListConversations returns every conversation with its messages in order.
func (s *Service) ListConversations(ctx context.Context) ([]journal.ConversationWithMessages, error) {
	conversations, err := s.store.ListConversations(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	result := make([]journal.ConversationWithMessages, 0, len(conversations))
	for _, conversation := range conversations {
		messages, err := s.store.ListMessages(ctx, conversation.ID)
		if err != nil {
			return nil, fmt.Errorf("list messages of conversation %d: %w", conversation.ID, err)
		}
		result = append(result, journal.ConversationWithMessages{Conversation: conversation, Messages: messages})
	}
	return result, nil
}

// ListMessages returns a conversation's messages oldest first; unknown ids yield an empty list.
func (s *Service) ListMessages(ctx context.Context, conversationID int64) ([]journal.Message, error) {
	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if messages == nil {
		messages = []journal.Message{}
	}
	return messages, nil
}
