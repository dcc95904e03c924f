package journal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
	"github.com/zhouzirui/voice-twin/backend/internal/service/ai"
	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/store"
)

type firstPick struct{}

func (firstPick) Float64() float64 { return 0 }
func (firstPick) IntN(int) int     { return 0 }

type stubAnalyzer struct {
	analysis voice.StyleAnalysis
	err      error
}

func (s stubAnalyzer) Analyze(context.Context, string) (voice.StyleAnalysis, error) {
	return s.analysis, s.err
}

type recordingResponder struct {
	reply   string
	err     error
	history []journal.HistoryEntry
}

func (r *recordingResponder) Generate(_ context.Context, _ string, _ voice.StyleAnalysis, history []journal.HistoryEntry) (string, error) {
	r.history = history
	return r.reply, r.err
}

func newDemoService(t *testing.T) (*journalservice.Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	opts := ai.Options{Source: firstPick{}}
	svc := journalservice.NewService(st, ai.NewAnalyzer(nil, opts), ai.NewResponder(nil, opts), journalservice.Config{}, nil)
	return svc, st
}

func TestProcessValidation(t *testing.T) {
	svc, st := newDemoService(t)
	ctx := context.Background()

	_, err := svc.Process(ctx, journalservice.ProcessRequest{Text: "   ", ConversationID: 1})
	assert.ErrorIs(t, err, journalservice.ErrTextRequired)

	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "hello"})
	assert.ErrorIs(t, err, journalservice.ErrConversationRequired)

	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "hello", ConversationID: 99})
	assert.ErrorIs(t, err, journalservice.ErrConversationNotFound)

	recent, err := st.RecentMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "validation failures have no side effects")
}

func TestProcessDemoPipeline(t *testing.T) {
	svc, st := newDemoService(t)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	var stages []journalservice.Stage
	result, err := svc.Process(ctx, journalservice.ProcessRequest{
		Text:           "This is AMAZING!!",
		ConversationID: conv.ID,
		OnStage: func(stage journalservice.Stage, _ any) {
			stages = append(stages, stage)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []journalservice.Stage{
		journalservice.StageAnalysis,
		journalservice.StageUserMessage,
		journalservice.StageAIMessage,
		journalservice.StageProfile,
	}, stages)

	assert.Equal(t, "enthusiastic", result.VoiceAnalysis.Tone)
	assert.True(t, result.UserMessage.IsUser)
	require.NotNil(t, result.UserMessage.StyleAnalysis)
	assert.Equal(t, result.VoiceAnalysis, *result.UserMessage.StyleAnalysis)
	assert.False(t, result.AIMessage.IsUser)
	assert.Nil(t, result.AIMessage.StyleAnalysis)
	assert.Equal(t, "That's exactly what I was thinking! Let's dive deeper into this!", result.AIMessage.Text)

	msgs, err := svc.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	p, ok, err := st.GetVoiceProfile(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "enthusiastic", p.SpeechPatterns.AverageTone)
	assert.InDelta(t, 0.75, p.SpeechPatterns.ConfidenceLevel, 1e-9)
}

func TestProcessPassesHistoryIncludingCurrentTurn(t *testing.T) {
	st := store.NewMemoryStore()
	responder := &recordingResponder{reply: "sure"}
	svc := journalservice.NewService(st, stubAnalyzer{analysis: voice.StyleAnalysis{Tone: "casual", Style: "casual", Confidence: 0.6}}, responder, journalservice.Config{}, nil)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "one", ConversationID: conv.ID})
	require.NoError(t, err)
	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "two", ConversationID: conv.ID})
	require.NoError(t, err)

	assert.Equal(t, []journal.HistoryEntry{
		{Text: "one", IsUser: true},
		{Text: "sure", IsUser: false},
		{Text: "two", IsUser: true},
	}, responder.history)
}

func TestProcessProfileOwnerAndBlend(t *testing.T) {
	st := store.NewMemoryStore()
	analyzer := &sequenceAnalyzer{analyses: []voice.StyleAnalysis{
		{Tone: "casual", Style: "casual", Confidence: 0.8},
		{Tone: "polite", Style: "formal", Confidence: 0.6},
	}}
	svc := journalservice.NewService(st, analyzer, &recordingResponder{reply: "ok"}, journalservice.Config{DefaultUserID: 3}, nil)
	ctx := context.Background()

	owner := int64(7)
	owned, err := svc.CreateConversation(ctx, &owner)
	require.NoError(t, err)

	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "hey", ConversationID: owned.ID})
	require.NoError(t, err)
	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "please", ConversationID: owned.ID})
	require.NoError(t, err)

	p, ok, err := st.GetVoiceProfile(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "polite", p.SpeechPatterns.AverageTone)
	assert.Equal(t, "formal", p.SpeechPatterns.SpeakingStyle)
	assert.InDelta(t, 0.7, p.SpeechPatterns.ConfidenceLevel, 1e-9)

	_, ok, err = st.GetVoiceProfile(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok, "the default user is only used for ownerless conversations")
}

type sequenceAnalyzer struct {
	analyses []voice.StyleAnalysis
	next     int
}

func (s *sequenceAnalyzer) Analyze(context.Context, string) (voice.StyleAnalysis, error) {
	a := s.analyses[s.next%len(s.analyses)]
	s.next++
	return a, nil
}

func TestProcessFailuresKeepPartialEffects(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	conv, err := st.CreateConversation(ctx, nil)
	require.NoError(t, err)

	failing := journalservice.NewService(st, stubAnalyzer{err: ai.ErrAnalysisFailed}, &recordingResponder{}, journalservice.Config{}, nil)
	_, err = failing.Process(ctx, journalservice.ProcessRequest{Text: "hi", ConversationID: conv.ID})
	assert.ErrorIs(t, err, ai.ErrAnalysisFailed)

	msgs, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	genErr := errors.Join(ai.ErrGenerationFailed, errors.New("upstream 500"))
	replyFails := journalservice.NewService(st, stubAnalyzer{analysis: voice.StyleAnalysis{Tone: "neutral", Style: "conversational"}}, &recordingResponder{err: genErr}, journalservice.Config{}, nil)
	_, err = replyFails.Process(ctx, journalservice.ProcessRequest{Text: "hi", ConversationID: conv.ID})
	assert.ErrorIs(t, err, ai.ErrGenerationFailed)

	msgs, err = st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "the user message stays stored")
	assert.True(t, msgs[0].IsUser)
}

func TestAnalytics(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	svc := journalservice.NewService(st, stubAnalyzer{}, &recordingResponder{}, journalservice.Config{AnalyticsWindow: 3}, nil)

	empty, err := svc.Analytics(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, empty.Profile)
	assert.Zero(t, empty.RecentAnalysis.TotalMessages)
	assert.Zero(t, empty.RecentAnalysis.AverageConfidence)
	assert.NotNil(t, empty.RecentAnalysis.CommonTones)

	conv, err := st.CreateConversation(ctx, nil)
	require.NoError(t, err)
	add := func(isUser bool, tone, styleLabel string, confidence float64) {
		t.Helper()
		var analysis *voice.StyleAnalysis
		if tone != "" {
			analysis = &voice.StyleAnalysis{Tone: tone, Style: styleLabel, Confidence: confidence}
		}
		_, err := st.CreateMessage(ctx, store.NewMessage{ConversationID: conv.ID, IsUser: isUser, Text: "x", StyleAnalysis: analysis})
		require.NoError(t, err)
	}
	add(true, "polite", "formal", 0.1) // outside the window
	add(true, "casual", "casual", 0.9)
	add(false, "", "", 0)
	add(true, "casual", "detailed", 0.7)

	_, err = st.CreateVoiceProfile(ctx, 1, voice.SpeechPatterns{AverageTone: "casual", CommonPhrases: []string{}, SpeakingStyle: "detailed", ConfidenceLevel: 0.8})
	require.NoError(t, err)

	got, err := svc.Analytics(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "detailed", got.Profile.SpeakingStyle)
	assert.Equal(t, 2, got.RecentAnalysis.TotalMessages)
	assert.Equal(t, []string{"casual"}, got.RecentAnalysis.CommonTones)
	assert.Equal(t, []string{"detailed", "casual"}, got.RecentAnalysis.CommonStyles)
	assert.InDelta(t, 0.8, got.RecentAnalysis.AverageConfidence, 1e-9)
}

func TestListConversationsIncludesMessages(t *testing.T) {
	svc, _ := newDemoService(t)
	ctx := context.Background()

	first, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "hello there", ConversationID: first.ID})
	require.NoError(t, err)

	all, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[int64]int{}
	for _, c := range all {
		byID[c.ID] = len(c.Messages)
	}
	assert.Equal(t, 2, byID[first.ID])

	none, err := svc.ListMessages(ctx, 404)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

// lateCreateStore simulates another request creating the profile between
// GetVoiceProfile and CreateVoiceProfile.
type lateCreateStore struct {
	store.Store
	winner voice.SpeechPatterns
}

func (s *lateCreateStore) CreateVoiceProfile(ctx context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, error) {
	if _, err := s.Store.CreateVoiceProfile(ctx, userID, s.winner); err != nil {
		return voice.Profile{}, err
	}
	return voice.Profile{}, store.ErrProfileExists
}

func TestProcessLostProfileCreateBlendsWithWinner(t *testing.T) {
	st := &lateCreateStore{
		Store:  store.NewMemoryStore(),
		winner: voice.SpeechPatterns{AverageTone: "casual", CommonPhrases: []string{}, SpeakingStyle: "casual", ConfidenceLevel: 0.9},
	}
	analyzer := stubAnalyzer{analysis: voice.StyleAnalysis{Tone: "polite", Style: "formal", Confidence: 0.5}}
	svc := journalservice.NewService(st, analyzer, &recordingResponder{reply: "ok"}, journalservice.Config{}, nil)
	ctx := context.Background()

	owner := int64(4)
	conv, err := svc.CreateConversation(ctx, &owner)
	require.NoError(t, err)
	_, err = svc.Process(ctx, journalservice.ProcessRequest{Text: "hello", ConversationID: conv.ID})
	require.NoError(t, err)

	p, ok, err := st.GetVoiceProfile(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "polite", p.SpeechPatterns.AverageTone)
	assert.InDelta(t, 0.7, p.SpeechPatterns.ConfidenceLevel, 1e-9)
}
