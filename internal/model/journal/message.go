package journal

import (
	"time"

	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// Message is a single turn. Only user turns carry a style analysis.
type Message struct {
	ID             int64                `json:"id"`
	ConversationID int64                `json:"conversationId"`
	IsUser         bool                 `json:"isUser"`
	Text           string               `json:"text"`
	StyleAnalysis  *voice.StyleAnalysis `json:"voiceAnalysis"`
	Timestamp      time.Time            `json:"timestamp"`
}

// HistoryEntry is the slice of a message the reply generator needs.
type HistoryEntry struct {
	Text   string
	IsUser bool
}

// History projects messages into generator context, preserving order.
func History(messages []Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, HistoryEntry{Text: msg.Text, IsUser: msg.IsUser})
	}
	return entries
}
