package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0.2},
		{"short", "short", 0.2},
		{"short error beats length", "Error: nothing found", 0.1},
		{"no results marker", strings.Repeat("a", 60) + " No Results here", 0.1},
		{"short url beats length", "see http:x", 0.8},
		{"uppercase URL marker", strings.Repeat("b", 60) + " URL: example", 0.8},
		{"lowercase url is not a marker", strings.Repeat("c", 60) + " url", 0.3},
		{"error beats url", "Error searching web: GET https://api.tavily.com failed", 0.1},
		{"long", strings.TrimSpace(strings.Repeat("x ", 600)), 0.7},
		{"medium", strings.Repeat("y", 201), 0.5},
		{"exactly 200", strings.Repeat("y", 200), 0.3},
		{"just over 50", strings.Repeat("z", 51), 0.3},
		{"exactly 50", strings.Repeat("z", 50), 0.3},
		{"49 runes", strings.Repeat("é", 49), 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text))
		})
	}
}

func TestEvaluate(t *testing.T) {
	scores, q := Evaluate(nil)
	assert.Empty(t, scores)
	assert.Equal(t, Quality{}, q)

	long := strings.Repeat("w", 600) + " https://example.com"
	scores, q = Evaluate(map[Tool]string{
		BlogSearch: long,
		WebSearch:  "Error searching web: timeout",
	})
	assert.Equal(t, 0.8, scores[BlogSearch])
	assert.Equal(t, 0.1, scores[WebSearch])
	assert.InDelta(t, 0.45, q.Overall, 1e-9)
	assert.Equal(t, 1, q.ResultCount)
}

func TestQualityInsufficient(t *testing.T) {
	assert.True(t, Quality{Overall: 0.8, ResultCount: 1}.Insufficient(), "too few results")
	assert.True(t, Quality{Overall: 0.5, ResultCount: 3}.Insufficient(), "low quality")
	assert.False(t, Quality{Overall: 0.6, ResultCount: 2}.Insufficient())
}

func TestShouldRefine(t *testing.T) {
	s := State{Quality: Quality{Overall: 0.1}}
	assert.True(t, s.ShouldRefine())

	s.Attempts = MaxRefinements
	assert.True(t, s.RefinementApplied())
	assert.False(t, s.ShouldRefine(), "refinement budget spent")
}
