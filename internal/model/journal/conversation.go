package journal

import "time"

// Conversation groups the messages of one journaling session.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationWithMessages is the listing shape returned to the client.
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}
