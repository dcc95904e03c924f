package voice

import "time"

// SpeechPatterns is the aggregate style a user has shown so far.
type SpeechPatterns struct {
	AverageTone     string   `json:"averageTone"`
	CommonPhrases   []string `json:"commonPhrases"`
	SpeakingStyle   string   `json:"speakingStyle"`
	ConfidenceLevel float64  `json:"confidenceLevel"`
}

// Profile 每个用户至多一份，随每条用户消息原地更新。
type Profile struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"userId"`
	SpeechPatterns SpeechPatterns `json:"speechPatterns"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}
