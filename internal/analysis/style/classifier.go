package style

import (
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// Tone labels produced by the heuristic classifier.
const (
	ToneEnthusiastic = "enthusiastic"
	ToneCurious      = "curious"
	TonePolite       = "polite"
	ToneCasual       = "casual"
	ToneFriendly     = "friendly"
	ToneConcerned    = "concerned"
	ToneNeutral      = "neutral"
)

// Style labels produced by the heuristic classifier.
const (
	StyleFormal         = "formal"
	StyleInquisitive    = "inquisitive"
	StyleCasual         = "casual"
	StyleDetailed       = "detailed"
	StyleConversational = "conversational"
)

// The heuristic confidence is a random draw in [0.75, 0.95) that only makes the
// result look analyzed. It does not measure how well the text fit the labels.
const (
	minConfidence   = 0.75
	confidenceRange = 0.20
	detailedLength  = 100
)

// Source supplies the pseudo-random draws used by the heuristics.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultSource draws from the process-wide math/rand/v2 generator.
var DefaultSource Source = globalSource{}

var wordBuckets = map[string]map[string]struct{}{
	"positive": wordSet(
		"good", "great", "awesome", "amazing", "wonderful", "love", "loved", "happy", "glad",
		"excellent", "fantastic", "nice", "beautiful", "perfect", "enjoy", "enjoyed", "best",
		"fun", "grateful", "proud", "brilliant",
	),
	"negative": wordSet(
		"bad", "terrible", "awful", "hate", "sad", "angry", "upset", "frustrated", "annoyed",
		"worried", "stressed", "worst", "disappointed", "horrible", "lonely", "anxious",
		"problem", "difficult",
	),
	"formal": wordSet(
		"please", "thank", "kindly", "regards", "sincerely", "appreciate", "certainly",
		"indeed", "furthermore", "therefore", "however", "excuse", "sorry", "pardon",
	),
	"casual": wordSet(
		"hey", "hi", "yeah", "yep", "nah", "cool", "gonna", "wanna", "kinda", "dude", "lol",
		"totally", "stuff", "ok", "okay", "guys", "sup", "btw",
	),
	"enthusiastic": wordSet(
		"wow", "excited", "thrilled", "incredible", "yay", "woohoo", "omg", "ecstatic",
		"stoked", "pumped", "unbelievable",
	),
}

// Counts holds the raw signals the classifier derives from a text.
type Counts struct {
	Positive     int
	Negative     int
	Formal       int
	Casual       int
	Enthusiastic int
	Exclamations int
	Questions    int
	Capitals     int
}

// Classify runs the heuristic classifier with the default random source.
func Classify(text string) voice.StyleAnalysis {
	return ClassifyWith(text, DefaultSource)
}

// ClassifyWith is Classify with an explicit random source for the confidence draw.
// It never fails: empty text yields a neutral/conversational/medium analysis.
func ClassifyWith(text string, src Source) voice.StyleAnalysis {
	if src == nil {
		src = DefaultSource
	}

	counts := Count(text)
	lowered := strings.ToLower(text)

	sentiment := sentimentOf(counts)
	return voice.StyleAnalysis{
		Tone:       toneOf(counts, sentiment),
		Style:      styleOf(counts, text),
		Sentiment:  sentiment,
		Energy:     energyOf(counts, lowered),
		Confidence: minConfidence + src.Float64()*confidenceRange,
	}
}

// Count tokenizes the text and tallies word-list hits and punctuation.
func Count(text string) Counts {
	var c Counts
	c.Exclamations = strings.Count(text, "!")
	c.Questions = strings.Count(text, "?")
	for _, r := range text {
		if unicode.IsUpper(r) {
			c.Capitals++
		}
	}

	for _, raw := range strings.Fields(strings.ToLower(text)) {
		token := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if token == "" {
			continue
		}
		if in("positive", token) {
			c.Positive++
		}
		if in("negative", token) {
			c.Negative++
		}
		if in("formal", token) {
			c.Formal++
		}
		if in("casual", token) {
			c.Casual++
		}
		if in("enthusiastic", token) {
			c.Enthusiastic++
		}
	}
	return c
}

func sentimentOf(c Counts) voice.Sentiment {
	switch {
	case c.Positive > c.Negative:
		return voice.Positive
	case c.Negative > c.Positive:
		return voice.Negative
	default:
		return voice.NeutralSentiment
	}
}

// toneOf: first match wins, questions are checked before the formal comparison.
func toneOf(c Counts, sentiment voice.Sentiment) string {
	switch {
	case c.Enthusiastic > 0 || c.Exclamations > 1:
		return ToneEnthusiastic
	case c.Questions > 0:
		return ToneCurious
	case c.Formal > c.Casual:
		return TonePolite
	case c.Casual > 0:
		return ToneCasual
	case sentiment == voice.Positive:
		return ToneFriendly
	case sentiment == voice.Negative:
		return ToneConcerned
	default:
		return ToneNeutral
	}
}

func styleOf(c Counts, text string) string {
	switch {
	case c.Formal > 0:
		return StyleFormal
	case c.Questions > 1:
		return StyleInquisitive
	case c.Casual > 0:
		return StyleCasual
	case utf8.RuneCountInString(text) > detailedLength:
		return StyleDetailed
	default:
		return StyleConversational
	}
}

func energyOf(c Counts, lowered string) voice.Energy {
	if c.Exclamations > 0 || c.Capitals > 3 || c.Enthusiastic > 0 {
		return voice.High
	}
	if c.Negative > 0 || strings.Contains(lowered, "tired") || strings.Contains(lowered, "exhausted") {
		return voice.Low
	}
	return voice.Medium
}

func in(bucket, token string) bool {
	_, ok := wordBuckets[bucket][token]
	return ok
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
