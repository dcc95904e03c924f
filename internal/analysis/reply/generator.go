// Package reply drafts AI Twin replies from canned templates when no language model is available.
package reply

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/voice-twin/backend/internal/analysis/style"
	"github.com/zhouzirui/voice-twin/backend/internal/model/voice"
)

// Encouragement is appended to every high-energy reply.
const Encouragement = " Let's dive deeper into this!"

var templatesByTone = map[string][]string{
	style.ToneEnthusiastic: {
		"That's exactly what I was thinking!",
		"I love how you put that!",
		"Yes, absolutely! That makes perfect sense!",
	},
	style.ToneCurious: {
		"That's interesting... tell me more about that.",
		"I wonder if there's another way to look at this?",
		"What do you think would happen if we tried a different approach?",
	},
	style.TonePolite: {
		"I appreciate you sharing that perspective.",
		"Thank you for bringing that up.",
		"That's a thoughtful way to look at it.",
	},
	style.ToneFriendly: {
		"I totally get what you mean!",
		"That sounds really good to me.",
		"I'm with you on that one.",
	},
	style.ToneCasual: {
		"Yeah, for sure, that's cool.",
		"Ha, I was kinda thinking the same thing.",
		"Totally, that makes sense to me.",
	},
	style.ToneConcerned: {
		"That sounds tough, I hear you.",
		"I get why that's weighing on you.",
		"It's okay to feel that way about it.",
	},
	style.ToneNeutral: {
		"I see what you mean.",
		"That's a fair point.",
		"Okay, I'm following you.",
	},
}

var workRemarks = map[voice.Sentiment]string{
	voice.Positive:         "Sounds like the work is really coming together.",
	voice.Negative:         "Work can be draining, I know that feeling.",
	voice.NeutralSentiment: "Work has been on my mind a lot too.",
}

var dayRemarks = map[voice.Sentiment]string{
	voice.Positive:         "What a great day you're having!",
	voice.Negative:         "Sounds like a rough day.",
	voice.NeutralSentiment: "Every day brings something new.",
}

// AI-themed wrappers; %s is the reply so far.
var aiVariants = []string{
	"Thinking about AI like this, %s",
	"%s It's fascinating how much AI shapes these ideas.",
	"As your AI twin, I'd say: %s",
}

var (
	formalReplacer = regexp.MustCompile(`(?i)\b(totally|really|awesome|cool)\b`)
	casualReplacer = regexp.MustCompile(`(?i)\b(certainly|indeed)\b`)
)

// Generate drafts a reply with the default random source.
func Generate(userText string, analysis voice.StyleAnalysis) string {
	return GenerateWith(userText, analysis, style.DefaultSource)
}

// GenerateWith drafts a reply using src for template selection.
// Stages run in a fixed order (template, content prefix, energy, style) because
// each one can change the words the next one matches.
func GenerateWith(userText string, analysis voice.StyleAnalysis, src style.Source) string {
	if src == nil {
		src = style.DefaultSource
	}

	response := pick(templatesFor(analysis.Tone), src)
	response = applyContent(response, strings.ToLower(userText), analysis.Sentiment, src)
	response = applyEnergy(response, analysis.Energy)
	return applyStyle(response, analysis.Style)
}

func templatesFor(tone string) []string {
	if set, ok := templatesByTone[strings.ToLower(strings.TrimSpace(tone))]; ok {
		return set
	}
	return templatesByTone[style.ToneFriendly]
}

func applyContent(response, lowered string, sentiment voice.Sentiment, src style.Source) string {
	if strings.Contains(lowered, "project") || strings.Contains(lowered, "work") {
		response = remark(workRemarks, sentiment) + " " + response
	}
	if strings.Contains(lowered, "ai") || strings.Contains(lowered, "artificial") || strings.Contains(lowered, "intelligence") {
		variant := aiVariants[src.IntN(len(aiVariants))]
		response = strings.Replace(variant, "%s", response, 1)
	}
	if strings.Contains(lowered, "day") || strings.Contains(lowered, "today") {
		response = remark(dayRemarks, sentiment) + " " + response
	}
	return response
}

func applyEnergy(response string, energy voice.Energy) string {
	switch energy {
	case voice.High:
		return response + Encouragement
	case voice.Low:
		lowered := strings.ToLower(response)
		if trimmed := strings.TrimRight(lowered, "!."); trimmed != lowered {
			lowered = trimmed + "."
		}
		return capitalize(lowered)
	default:
		return response
	}
}

func applyStyle(response, styleLabel string) string {
	switch strings.ToLower(styleLabel) {
	case style.StyleFormal:
		return replaceWord(formalReplacer, response, "certainly")
	case style.StyleCasual:
		return replaceWord(casualReplacer, response, "totally")
	default:
		return response
	}
}

// replaceWord swaps every match for word, keeping an upper-case first letter
// so a replaced sentence opener stays capitalised.
func replaceWord(re *regexp.Regexp, response, word string) string {
	return re.ReplaceAllStringFunc(response, func(match string) string {
		if r, _ := utf8.DecodeRuneInString(match); unicode.IsUpper(r) {
			return capitalize(word)
		}
		return word
	})
}

func remark(set map[voice.Sentiment]string, sentiment voice.Sentiment) string {
	if line, ok := set[sentiment]; ok {
		return line
	}
	return set[voice.NeutralSentiment]
}

func pick(set []string, src style.Source) string {
	return set[src.IntN(len(set))]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
