package advisor

import (
	"strings"
	"unicode/utf8"
)

const (
	// QualityThreshold is the mean score below which results are refined.
	QualityThreshold = 0.6
	// MinResults is the number of substantial results needed to skip refinement.
	MinResults = 2
	// minResultLength is the length a result must exceed to count as substantial.
	minResultLength = 50
)

// Score rates a tool result in [0, 1]. Rules are checked in order and the
// first match wins: failure markers and citations outrank length, so a short
// error scores 0.1 and a short text carrying a URL scores 0.8.
func Score(text string) float64 {
	if text == "" {
		return 0.2
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "error") || strings.Contains(lower, "no results") {
		return 0.1
	}

	if strings.Contains(text, "http") || strings.Contains(text, "URL") {
		return 0.8
	}

	switch n := utf8.RuneCountInString(text); {
	case n < minResultLength:
		return 0.2
	case n > 500:
		return 0.7
	case n > 200:
		return 0.5
	default:
		return 0.3
	}
}

// Quality summarizes the accumulated results of a run.
type Quality struct {
	// Overall is the mean per-tool score, zero before any tool ran.
	Overall float64 `json:"overall"`
	// ResultCount counts results longer than 50 characters.
	ResultCount int `json:"result_count"`
}

// Insufficient reports whether q calls for a refinement.
func (q Quality) Insufficient() bool {
	return q.Overall < QualityThreshold || q.ResultCount < MinResults
}

// Evaluate scores every result and derives the run quality.
func Evaluate(results map[Tool]string) (map[Tool]float64, Quality) {
	scores := make(map[Tool]float64, len(results))
	if len(results) == 0 {
		return scores, Quality{}
	}

	var sum float64
	var count int
	for t, text := range results {
		s := Score(text)
		scores[t] = s
		sum += s
		if utf8.RuneCountInString(text) > minResultLength {
			count++
		}
	}
	return scores, Quality{Overall: sum / float64(len(results)), ResultCount: count}
}
