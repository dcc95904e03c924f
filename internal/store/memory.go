package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// MemoryStore keeps everything in process memory; state is lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]journal.Conversation
	messages      []journal.Message
	profiles      map[int64]voice.Profile

	nextConversationID int64
	nextMessageID      int64
	nextProfileID      int64

	now func() time.Time
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations:      make(map[int64]journal.Conversation),
		messages:           make([]journal.Message, 0, 64),
		profiles:           make(map[int64]voice.Profile),
		nextConversationID: 1,
		nextMessageID:      1,
		nextProfileID:      1,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, userID *int64) (journal.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := journal.Conversation{
		ID:        s.nextConversationID,
		UserID:    copyID(userID),
		Timestamp: s.now(),
	}
	s.nextConversationID++
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id int64) (journal.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	return conv, ok, nil
}

func (s *MemoryStore) ListConversations(_ context.Context, userID *int64) ([]journal.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]journal.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if userID != nil && (conv.UserID == nil || *conv.UserID != *userID) {
			continue
		}
		result = append(result, conv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, in NewMessage) (journal.Message, error) {
	if in.ConversationID <= 0 {
		return journal.Message{}, ErrConversationRequired
	}
	in = sanitize(in)

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := journal.Message{
		ID:             s.nextMessageID,
		ConversationID: in.ConversationID,
		IsUser:         in.IsUser,
		Text:           in.Text,
		StyleAnalysis:  in.StyleAnalysis,
		Timestamp:      s.now(),
	}
	s.nextMessageID++
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID int64) ([]journal.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]journal.Message, 0)
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return messageBefore(result[i], result[j]) })
	return result, nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, limit int) ([]journal.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]journal.Message, len(s.messages))
	copy(result, s.messages)
	sort.SliceStable(result, func(i, j int) bool { return messageBefore(result[j], result[i]) })
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) GetVoiceProfile(_ context.Context, userID int64) (voice.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return voice.Profile{}, false, nil
	}
	return cloneProfile(p), true, nil
}

func (s *MemoryStore) CreateVoiceProfile(_ context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[userID]; exists {
		return voice.Profile{}, ErrProfileExists
	}

	now := s.now()
	p := voice.Profile{
		ID:             s.nextProfileID,
		UserID:         userID,
		SpeechPatterns: patterns,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.nextProfileID++
	s.profiles[userID] = cloneProfile(p)
	return p, nil
}

func (s *MemoryStore) UpdateVoiceProfile(_ context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return voice.Profile{}, false, nil
	}
	p.SpeechPatterns = patterns
	p.UpdatedAt = s.now()
	s.profiles[userID] = cloneProfile(p)
	return p, true, nil
}

// Close is a no-op for the memory engine.
func (s *MemoryStore) Close() error { return nil }

func messageBefore(a, b journal.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func cloneProfile(p voice.Profile) voice.Profile {
	phrases := make([]string, len(p.SpeechPatterns.CommonPhrases))
	copy(phrases, p.SpeechPatterns.CommonPhrases)
	p.SpeechPatterns.CommonPhrases = phrases
	return p
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
