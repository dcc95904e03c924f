package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

func TestUpdateWithoutExistingProfile(t *testing.T) {
	latest := voice.StyleAnalysis{Tone: "curious", Style: "formal", Sentiment: voice.Positive, Energy: voice.High, Confidence: 0.8}

	got := Update(nil, latest)

	assert.Equal(t, "curious", got.AverageTone)
	assert.Equal(t, "formal", got.SpeakingStyle)
	assert.InDelta(t, 0.8, got.ConfidenceLevel, 1e-9)
	require.NotNil(t, got.CommonPhrases)
	assert.Empty(t, got.CommonPhrases)
}

func TestUpdateOverwritesCategoricalFields(t *testing.T) {
	existing := &voice.SpeechPatterns{
		AverageTone:     "casual",
		CommonPhrases:   []string{"you know"},
		SpeakingStyle:   "casual",
		ConfidenceLevel: 0.6,
	}
	latest := voice.StyleAnalysis{Tone: "polite", Style: "formal", Confidence: 0.9}

	got := Update(existing, latest)

	assert.Equal(t, "polite", got.AverageTone)
	assert.Equal(t, "formal", got.SpeakingStyle)
	assert.Equal(t, []string{"you know"}, got.CommonPhrases)
	assert.InDelta(t, 0.75, got.ConfidenceLevel, 1e-9)

	got.CommonPhrases[0] = "changed"
	assert.Equal(t, "you know", existing.CommonPhrases[0], "phrases must be copied, not aliased")
}

func TestUpdateConvergesWithoutOvershoot(t *testing.T) {
	latest := voice.StyleAnalysis{Tone: "neutral", Style: "conversational", Confidence: 0.9}
	current := voice.SpeechPatterns{ConfidenceLevel: 0.5}

	prevGap := math.Abs(latest.Confidence - current.ConfidenceLevel)
	for i := 0; i < 10; i++ {
		current = Update(&current, latest)
		gap := latest.Confidence - current.ConfidenceLevel
		require.Greater(t, gap, 0.0, "blend must not reach or pass the target")
		require.Less(t, gap, prevGap)
		prevGap = gap
	}
}

func TestUpdateClampsConfidence(t *testing.T) {
	got := Update(nil, voice.StyleAnalysis{Confidence: 1.7})
	assert.Equal(t, 1.0, got.ConfidenceLevel)

	got = Update(&voice.SpeechPatterns{ConfidenceLevel: 1}, voice.StyleAnalysis{Confidence: -3})
	assert.Equal(t, 0.5, got.ConfidenceLevel)
}
