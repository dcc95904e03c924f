package voice

import "strings"

// Sentiment 取值固定为 positive/negative/neutral。
type Sentiment string

const (
	Positive         Sentiment = "positive"
	Negative         Sentiment = "negative"
	NeutralSentiment Sentiment = "neutral"
)

// Energy 取值固定为 high/medium/low。
type Energy string

const (
	High   Energy = "high"
	Medium Energy = "medium"
	Low    Energy = "low"
)

// Defaults applied when a classification field is missing.
const (
	DefaultTone       = "neutral"
	DefaultStyle      = "conversational"
	DefaultConfidence = 0.5
)

// StyleAnalysis is the five-field classification of a single utterance.
type StyleAnalysis struct {
	Tone       string    `json:"tone"`
	Style      string    `json:"style"`
	Sentiment  Sentiment `json:"sentiment"`
	Energy     Energy    `json:"energy"`
	Confidence float64   `json:"confidence"`
}

// ParseSentiment 归一化情感取值，未知值回退为 neutral。
func ParseSentiment(raw string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(raw))) {
	case Positive:
		return Positive
	case Negative:
		return Negative
	default:
		return NeutralSentiment
	}
}

// ParseEnergy 归一化能量取值，未知值回退为 medium。
func ParseEnergy(raw string) Energy {
	switch Energy(strings.ToLower(strings.TrimSpace(raw))) {
	case High:
		return High
	case Low:
		return Low
	default:
		return Medium
	}
}

// ClampConfidence bounds a confidence value into [0,1].
func ClampConfidence(val float64) float64 {
	if val != val || val < 0 {
		return 0
	}
	if val > 1 {
		return 1
	}
	return val
}
