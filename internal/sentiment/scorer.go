// Package sentiment implements the lexicon based post scorer.
package sentiment

import (
	"regexp"
	"strings"

	"sentiment_research/internal/domain"
)

// Label thresholds. A score must be strictly beyond them to leave neutral.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

var tokenExpr = regexp.MustCompile(`[a-z']+`)

var (
	defaultPositive = []string{"good", "great", "excellent", "love", "amazing", "excited", "celebrate", "growth"}
	defaultNegative = []string{"bad", "terrible", "awful", "hate", "concern", "worried", "decline", "risk"}
)

// Scorer maps free text to a label and a normalized score. It is safe for
// concurrent use once built.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// Option extends a Scorer's lexicons.
type Option func(*Scorer)

// WithPositive adds words to the positive lexicon.
func WithPositive(words ...string) Option {
	return func(s *Scorer) { addWords(s.positive, words) }
}

// WithNegative adds words to the negative lexicon.
func WithNegative(words ...string) Option {
	return func(s *Scorer) { addWords(s.negative, words) }
}

// NewScorer builds a scorer over the default lexicons plus any extras.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		positive: make(map[string]struct{}, len(defaultPositive)),
		negative: make(map[string]struct{}, len(defaultNegative)),
	}
	addWords(s.positive, defaultPositive)
	addWords(s.negative, defaultNegative)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate returns the existing sentiment untouched when both values are
// supplied, otherwise it scores text.
func (s *Scorer) Evaluate(text string, existingLabel *domain.Label, existingScore *float64) (domain.Label, float64) {
	if existingLabel != nil && *existingLabel != "" && existingScore != nil {
		return *existingLabel, *existingScore
	}

	tokens := tokenExpr.FindAllString(strings.ToLower(text), -1)
	raw := 0
	for _, tok := range tokens {
		if _, ok := s.positive[tok]; ok {
			raw++
		}
		if _, ok := s.negative[tok]; ok {
			raw--
		}
	}
	score := float64(raw) / float64(max(len(tokens), 1))
	return Classify(score), score
}

// Classify converts a normalized score to a label.
func Classify(score float64) domain.Label {
	switch {
	case score > PositiveThreshold:
		return domain.LabelPositive
	case score < NegativeThreshold:
		return domain.LabelNegative
	default:
		return domain.LabelNeutral
	}
}

func addWords(set map[string]struct{}, words []string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
}
