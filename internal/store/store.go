// Package store persists conversations, messages and voice profiles.
package store

import (
	"context"
	"errors"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

var (
	ErrProfileExists        = errors.New("voice profile already exists for user")
	ErrConversationRequired = errors.New("conversation id is required")
	ErrUnsupportedDriver    = errors.New("unsupported store driver")
)

// NewMessage is the caller-supplied part of a message; id and timestamp are assigned by the store.
type NewMessage struct {
	ConversationID int64
	IsUser         bool
	Text           string
	StyleAnalysis  *voice.StyleAnalysis
}

// Store is the repository behind the journal pipeline. Lookups of missing
// records return ok=false with a nil error.
type Store interface {
	CreateConversation(ctx context.Context, userID *int64) (journal.Conversation, error)
	GetConversation(ctx context.Context, id int64) (journal.Conversation, bool, error)
	// ListConversations returns all conversations, or only those of userID when it is non-nil.
	ListConversations(ctx context.Context, userID *int64) ([]journal.Conversation, error)

	CreateMessage(ctx context.Context, msg NewMessage) (journal.Message, error)
	// ListMessages returns a conversation's messages oldest first.
	ListMessages(ctx context.Context, conversationID int64) ([]journal.Message, error)
	// RecentMessages returns up to limit messages across all conversations, newest first.
	RecentMessages(ctx context.Context, limit int) ([]journal.Message, error)

	GetVoiceProfile(ctx context.Context, userID int64) (voice.Profile, bool, error)
	CreateVoiceProfile(ctx context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, error)
	UpdateVoiceProfile(ctx context.Context, userID int64, patterns voice.SpeechPatterns) (voice.Profile, bool, error)

	Close() error
}

// Open returns the store engine named by driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// sanitize enforces that only user messages carry an analysis and clamps its confidence.
func sanitize(msg NewMessage) NewMessage {
	if !msg.IsUser || msg.StyleAnalysis == nil {
		msg.StyleAnalysis = nil
		return msg
	}
	analysis := *msg.StyleAnalysis
	analysis.Confidence = voice.ClampConfidence(analysis.Confidence)
	msg.StyleAnalysis = &analysis
	return msg
}
