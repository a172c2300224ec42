package nlu

import (
	"context"
	"regexp"
)

// Emotion labels produced by LexiconClassifier.
const (
	EmotionNeutral = "neutral"
	EmotionFear    = "fear"
	EmotionAnger   = "anger"
	EmotionSadness = "sadness"
)

// LexiconClassifier scores text against small per-emotion word lists and
// returns the label with the most hits, or neutral.
type LexiconClassifier struct {
	lexicon []emotionWords
}

type emotionWords struct {
	label string
	regex *regexp.Regexp
}

// NewLexiconClassifier returns the built-in classifier.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{lexicon: []emotionWords{
		{EmotionFear, regexp.MustCompile(`(?i)\b(scared|afraid|fear|threat\w*|blackmail\w*|worried|panic|help me|urgent)\b`)},
		{EmotionAnger, regexp.MustCompile(`(?i)\b(angry|frustrated|furious|annoyed|useless|worst|cheated)\b`)},
		{EmotionSadness, regexp.MustCompile(`(?i)\b(sad|depress\w*|lost everything|crying|hopeless|upset)\b`)},
	}}
}

// Classify implements EmotionClassifier. Ties go to the earlier label.
func (c *LexiconClassifier) Classify(_ context.Context, text string) string {
	best, bestHits := EmotionNeutral, 0
	for _, e := range c.lexicon {
		if hits := len(e.regex.FindAllStringIndex(text, -1)); hits > bestHits {
			best, bestHits = e.label, hits
		}
	}
	return best
}
