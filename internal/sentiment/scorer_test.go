package sentiment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sentiment_research/internal/domain"
)

func padded(word string, total int) string {
	words := []string{word}
	for len(words) < total {
		words = append(words, "plain")
	}
	return strings.Join(words, " ")
}

func TestEvaluateLabels(t *testing.T) {
	s := NewScorer()

	cases := []struct {
		name  string
		text  string
		label domain.Label
		score float64
	}{
		{"positive", "Great progress, I love it", domain.LabelPositive, 2.0 / 5.0},
		{"negative", "Worried about market decline", domain.LabelNegative, -2.0 / 4.0},
		{"mixed cancels", "good but bad", domain.LabelNeutral, 0},
		{"empty", "", domain.LabelNeutral, 0},
		{"garbage", "1234 !!! ...", domain.LabelNeutral, 0},
		{"case insensitive", "AMAZING", domain.LabelPositive, 1},
		{"apostrophes kept", "don't hate", domain.LabelNegative, -0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			label, score := s.Evaluate(tc.text, nil, nil)
			assert.Equal(t, tc.label, label)
			assert.InDelta(t, tc.score, score, 1e-12)
		})
	}
}

func TestEvaluateThresholdBoundaries(t *testing.T) {
	s := NewScorer()

	label, score := s.Evaluate(padded("good", 20), nil, nil)
	assert.Equal(t, 0.05, score)
	assert.Equal(t, domain.LabelNeutral, label)

	label, score = s.Evaluate(padded("bad", 20), nil, nil)
	assert.Equal(t, -0.05, score)
	assert.Equal(t, domain.LabelNeutral, label)

	label, _ = s.Evaluate(padded("good", 19), nil, nil)
	assert.Equal(t, domain.LabelPositive, label)

	label, _ = s.Evaluate(padded("bad", 19), nil, nil)
	assert.Equal(t, domain.LabelNegative, label)
}

func TestEvaluatePassThrough(t *testing.T) {
	s := NewScorer()
	label := domain.LabelNegative
	score := 0.9

	gotLabel, gotScore := s.Evaluate("great great great", &label, &score)
	assert.Equal(t, domain.LabelNegative, gotLabel)
	assert.Equal(t, 0.9, gotScore)

	// partial values are ignored and the text is scored
	gotLabel, gotScore = s.Evaluate("great", &label, nil)
	assert.Equal(t, domain.LabelPositive, gotLabel)
	assert.Equal(t, 1.0, gotScore)

	gotLabel, _ = s.Evaluate("great", nil, &score)
	assert.Equal(t, domain.LabelPositive, gotLabel)
}

func TestEvaluateIsPure(t *testing.T) {
	s := NewScorer()
	text := "excited about growth, concern about risk"
	l1, s1 := s.Evaluate(text, nil, nil)
	l2, s2 := s.Evaluate(text, nil, nil)
	assert.Equal(t, l1, l2)
	assert.Equal(t, s1, s2)
}

func TestExtraLexiconWords(t *testing.T) {
	s := NewScorer(WithPositive("Bullish"), WithNegative("bearish", " "))

	label, _ := s.Evaluate("bullish", nil, nil)
	assert.Equal(t, domain.LabelPositive, label)

	label, _ = s.Evaluate("bearish", nil, nil)
	assert.Equal(t, domain.LabelNegative, label)

	label, _ = s.Evaluate("great", nil, nil)
	assert.Equal(t, domain.LabelPositive, label, "defaults stay active")
}
