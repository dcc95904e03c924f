package style

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

type fixedSource struct {
	f float64
	n int
}

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) IntN(int) int     { return s.n }

func TestClassifyEmptyText(t *testing.T) {
	got := Classify("")

	assert.Equal(t, ToneNeutral, got.Tone)
	assert.Equal(t, StyleConversational, got.Style)
	assert.Equal(t, voice.NeutralSentiment, got.Sentiment)
	assert.Equal(t, voice.Medium, got.Energy)
}

func TestClassifyEnthusiasticCaps(t *testing.T) {
	got := Classify("This is AMAZING!!")

	assert.Equal(t, ToneEnthusiastic, got.Tone)
	assert.Equal(t, voice.High, got.Energy)
	assert.Equal(t, voice.Positive, got.Sentiment)
}

func TestClassifyQuestionBeatsFormalForTone(t *testing.T) {
	got := Classify("Could you please help?")

	assert.Equal(t, ToneCurious, got.Tone)
	assert.Equal(t, StyleFormal, got.Style)
	assert.Equal(t, voice.Medium, got.Energy)
}

func TestClassifyTonePrecedence(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		tone  string
		style string
	}{
		{"formal over casual", "thank you kindly", TonePolite, StyleFormal},
		{"casual only", "hey dude that was cool", ToneCasual, StyleCasual},
		{"positive sentiment", "what a wonderful garden", ToneFriendly, StyleConversational},
		{"negative sentiment", "the meeting was awful", ToneConcerned, StyleConversational},
		{"plain", "the train leaves at noon", ToneNeutral, StyleConversational},
		{"enthusiastic word", "wow look at that", ToneEnthusiastic, StyleConversational},
		{"two questions", "where? when?", ToneCurious, StyleInquisitive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.text)
			assert.Equal(t, tc.tone, got.Tone)
			assert.Equal(t, tc.style, got.Style)
		})
	}
}

func TestClassifyDetailedStyle(t *testing.T) {
	text := strings.Repeat("the river runs along the valley ", 4)
	require.Greater(t, len(text), 100)

	assert.Equal(t, StyleDetailed, Classify(text).Style)
}

func TestClassifyLowEnergy(t *testing.T) {
	assert.Equal(t, voice.Low, Classify("I am so tired tonight").Energy)
	assert.Equal(t, voice.Low, Classify("feeling exhausted after the trip").Energy)
	assert.Equal(t, voice.Low, Classify("that was a sad story").Energy)
}

func TestClassifyPunctuationTrimmedForWordLists(t *testing.T) {
	counts := Count("Hey, please... (awesome)")

	assert.Equal(t, 1, counts.Casual)
	assert.Equal(t, 1, counts.Formal)
	assert.Equal(t, 1, counts.Positive)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	low := ClassifyWith("hello", fixedSource{f: 0})
	high := ClassifyWith("hello", fixedSource{f: 0.999999})

	assert.InDelta(t, 0.75, low.Confidence, 1e-9)
	assert.LessOrEqual(t, high.Confidence, 0.95)

	rng := rand.New(rand.NewPCG(7, 11))
	inputs := []string{"", "!!!", "WHY???", "please thank you", "meh", "I hate this, it is the worst!"}
	for i := 0; i < 200; i++ {
		got := ClassifyWith(inputs[i%len(inputs)], rng)
		require.GreaterOrEqual(t, got.Confidence, 0.75)
		require.LessOrEqual(t, got.Confidence, 0.95)
		require.NotEmpty(t, got.Tone)
		require.NotEmpty(t, got.Style)
		require.Contains(t, []voice.Sentiment{voice.Positive, voice.Negative, voice.NeutralSentiment}, got.Sentiment)
		require.Contains(t, []voice.Energy{voice.High, voice.Medium, voice.Low}, got.Energy)
	}
}
