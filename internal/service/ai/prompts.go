package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/voice-twin/backend/internal/model/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

const (
	userSpeaker = "User"
	twinSpeaker = "AI Twin"
)

// BuildReplySystemPrompt 生成 AI Twin 的系统提示：风格镜像要求 + 最近的对话上下文。
func BuildReplySystemPrompt(analysis voice.StyleAnalysis, history []journal.HistoryEntry, limit int) string {
	var builder strings.Builder
	builder.WriteString("You are an AI twin that mirrors the user's communication style.\n")
	builder.WriteString("Their current voice analysis shows:\n")
	builder.WriteString(fmt.Sprintf("- Tone: %s\n", analysis.Tone))
	builder.WriteString(fmt.Sprintf("- Style: %s\n", analysis.Style))
	builder.WriteString(fmt.Sprintf("- Energy: %s\n", analysis.Energy))
	builder.WriteString(fmt.Sprintf("- Sentiment: %s\n", analysis.Sentiment))
	builder.WriteString("\nRespond as if you are their digital twin. Match their tone and energy, keep their style, ")
	builder.WriteString("and answer in one to three natural sentences.")

	recent := formatHistory(history, limit)
	if recent != "" {
		builder.WriteString("\n\nRecent conversation context:\n")
		builder.WriteString(recent)
	}
	return builder.String()
}

// formatHistory keeps the last limit entries, oldest first.
func formatHistory(history []journal.HistoryEntry, limit int) string {
	if len(history) == 0 || limit <= 0 {
		return ""
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	lines := make([]string, 0, len(history))
	for _, entry := range history {
		speaker := twinSpeaker
		if entry.IsUser {
			speaker = userSpeaker
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, entry.Text))
	}
	return strings.Join(lines, "\n")
}
