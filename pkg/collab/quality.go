package collab

import "strings"

// QualityScorer ranks content for the quality_based suggestion. It is a
// tunable heuristic behind an interface so it can be swapped without touching
// the conflict-resolution control flow, and its output is always advisory.
type QualityScorer interface {
	Score(content string) ContentMetrics
}

// ContentMetrics holds the normalized [0,1] sub-scores and their average.
type ContentMetrics struct {
	LengthScore      float64 `json:"length_score"`
	ReadabilityScore float64 `json:"readability_score"`
	DensityScore     float64 `json:"density_score"`
	OverallScore     float64 `json:"overall_score"`
}

// HeuristicScorer scores content on length-appropriateness (target ~500
// characters), readability (10-25 words per sentence), and factual-indicator
// density.
type HeuristicScorer struct{}

var factualIndicators = []string{
	"according to",
	"research shows",
	"study found",
	"%",
	"statistics",
}

func (HeuristicScorer) Score(content string) ContentMetrics {
	if content == "" {
		return ContentMetrics{}
	}

	length := len(content)
	var lengthScore float64
	if length < 1000 {
		lengthScore = min(float64(length)/500, 1.0)
	} else {
		lengthScore = max(1.0-float64(length-1000)/2000, 0.5)
	}

	sentences := strings.Count(content, ".") + strings.Count(content, "!") + strings.Count(content, "?")
	words := len(strings.Fields(content))
	readabilityScore := 0.5
	if sentences > 0 {
		wordsPerSentence := float64(words) / float64(sentences)
		if wordsPerSentence >= 10 && wordsPerSentence <= 25 {
			readabilityScore = 0.8
		}
	}

	lower := strings.ToLower(content)
	factCount := 0
	for _, indicator := range factualIndicators {
		if strings.Contains(lower, indicator) {
			factCount++
		}
	}
	densityScore := min(float64(factCount)/3, 1.0)

	return ContentMetrics{
		LengthScore:      lengthScore,
		ReadabilityScore: readabilityScore,
		DensityScore:     densityScore,
		OverallScore:     (lengthScore + readabilityScore + densityScore) / 3,
	}
}
