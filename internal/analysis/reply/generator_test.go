package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// firstPick always selects index 0.
type firstPick struct{}

func (firstPick) Float64() float64 { return 0 }
func (firstPick) IntN(int) int     { return 0 }

func analysis(tone, styleLabel string, sentiment voice.Sentiment, energy voice.Energy) voice.StyleAnalysis {
	return voice.StyleAnalysis{Tone: tone, Style: styleLabel, Sentiment: sentiment, Energy: energy, Confidence: 0.8}
}

func TestGenerateEnthusiasticHighEnergyEndsWithEncouragement(t *testing.T) {
	inputs := []string{"great news", "my project at work shipped today", "AI is wild"}
	for _, input := range inputs {
		for i := 0; i < 10; i++ {
			got := Generate(input, analysis("enthusiastic", "conversational", voice.Positive, voice.High))
			assert.True(t, strings.HasSuffix(got, Encouragement), "reply %q should end with encouragement", got)
		}
	}
}

func TestGenerateUnknownToneFallsBackToFriendly(t *testing.T) {
	got := GenerateWith("hello", analysis("sarcastic", "conversational", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "I totally get what you mean!", got)
}

func TestGenerateContentPrefixesCompound(t *testing.T) {
	got := GenerateWith("Today my work project was fine", analysis("neutral", "conversational", voice.NeutralSentiment, voice.Medium), firstPick{})

	assert.Equal(t, "Every day brings something new. Work has been on my mind a lot too. I see what you mean.", got)
}

func TestGenerateAIWrap(t *testing.T) {
	got := GenerateWith("what do you think about AI", analysis("neutral", "conversational", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "Thinking about AI like this, I see what you mean.", got)

	// the trigger is a plain substring check, like the work and day checks
	embedded := GenerateWith("I said it again", analysis("neutral", "conversational", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "Thinking about AI like this, I see what you mean.", embedded)

	plain := GenerateWith("the storm was loud", analysis("neutral", "conversational", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "I see what you mean.", plain)
}

func TestGenerateSentimentConditionedRemarks(t *testing.T) {
	got := GenerateWith("work was brutal", analysis("concerned", "conversational", voice.Negative, voice.Medium), firstPick{})
	assert.True(t, strings.HasPrefix(got, "Work can be draining"), got)

	got = GenerateWith("lovely day", analysis("friendly", "conversational", voice.Positive, voice.Medium), firstPick{})
	assert.True(t, strings.HasPrefix(got, "What a great day you're having!"), got)
}

func TestGenerateLowEnergy(t *testing.T) {
	got := GenerateWith("hmm", analysis("enthusiastic", "conversational", voice.NeutralSentiment, voice.Low), firstPick{})
	assert.Equal(t, "That's exactly what i was thinking.", got)

	got = GenerateWith("hmm", analysis("curious", "conversational", voice.NeutralSentiment, voice.Low), firstPick{})
	assert.Equal(t, "That's interesting... tell me more about that.", got)
}

func TestGenerateStyleReplacements(t *testing.T) {
	formal := GenerateWith("hello", analysis("friendly", "formal", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "I certainly get what you mean!", formal)

	casual := GenerateWith("hello", analysis("polite", "casual", voice.NeutralSentiment, voice.Medium), firstPick{})
	assert.Equal(t, "I appreciate you sharing that perspective.", casual)
}

type pickIndex int

func (p pickIndex) Float64() float64 { return 0 }
func (p pickIndex) IntN(n int) int   { return int(p) % n }

func TestGenerateFormalReplacesWholeWords(t *testing.T) {
	// "really" in the second friendly template
	formal := GenerateWith("hello", analysis("friendly", "formal", voice.NeutralSentiment, voice.Medium), pickIndex(1))
	assert.Equal(t, "That sounds certainly good to me.", formal)

	assert.Equal(t, "Coolant is certainly fine.", applyStyle("Coolant is cool fine.", "formal"))
}

func TestGenerateCasualReplacesCertainly(t *testing.T) {
	casual := applyStyle("I certainly agree, indeed.", "casual")
	assert.Equal(t, "I totally agree, totally.", casual)
}

func TestGenerateStyleReplacementKeepsSentenceCapital(t *testing.T) {
	formal := GenerateWith("hello", analysis("casual", "formal", voice.NeutralSentiment, voice.Medium), pickIndex(2))
	assert.Equal(t, "Certainly, that makes sense to me.", formal)

	casual := applyStyle("Indeed. I certainly do.", "casual")
	assert.Equal(t, "Totally. I totally do.", casual)
}
