// Package profile folds per-utterance style analyses into a user's speech patterns.
package profile

import "github.com/zhouzirui/voice-twin/backend/internal/model/voice"

// Update merges the latest analysis into the existing patterns and returns a new record.
//
// Tone and style are last-write-wins. The confidence level is blended with the
// previous value only ((prev+latest)/2), so older samples decay geometrically
// instead of contributing to a true mean over all messages.
func Update(existing *voice.SpeechPatterns, latest voice.StyleAnalysis) voice.SpeechPatterns {
	confidence := voice.ClampConfidence(latest.Confidence)

	if existing == nil {
		return voice.SpeechPatterns{
			AverageTone:     latest.Tone,
			CommonPhrases:   []string{},
			SpeakingStyle:   latest.Style,
			ConfidenceLevel: confidence,
		}
	}

	phrases := make([]string, len(existing.CommonPhrases))
	copy(phrases, existing.CommonPhrases)

	return voice.SpeechPatterns{
		AverageTone:     latest.Tone,
		CommonPhrases:   phrases,
		SpeakingStyle:   latest.Style,
		ConfidenceLevel: (voice.ClampConfidence(existing.ConfidenceLevel) + confidence) / 2,
	}
}
