// Package scorer estimates the quality of a model response as a
// confidence value in [0, 1]. The score is a cheap text heuristic used to
// gate the reasoning loop, not a calibrated probability.
package scorer

import (
	"regexp"
	"strings"
)

const (
	baseConfidence = 0.75

	shortResponseChars = 50
	longResponseChars  = 200
	veryLongChars      = 500
)

// rule is one regex signal with its additive weight. Each rule fires at
// most once per response regardless of how many times it matches.
type rule struct {
	pattern *regexp.Regexp
	weight  float64
}

// ruleSet holds the scoring tables. Keeping the signals as data makes them
// tunable and testable independently of the control flow.
type ruleSet struct {
	structure   []rule
	uncertainty []rule
	errors      []rule
	completion  []rule
}

var defaultRules = ruleSet{
	structure: []rule{
		{regexp.MustCompile(`(?m)^\d+\.`), 0.10},
		{regexp.MustCompile(`(?m)^[-*]`), 0.05},
	},
	uncertainty: []rule{
		{regexp.MustCompile(`(?i)\b(maybe|perhaps|possibly|might|could be|unclear|unsure|uncertain)\b`), -0.15},
		{regexp.MustCompile(`\?\?+`), -0.15},
		{regexp.MustCompile(`(?i)\b(I don't know|not sure|can't say)\b`), -0.15},
	},
	errors: []rule{
		{regexp.MustCompile(`(?i)\b(error|fail|failed|problem|issue|broken|bug)\b`), -0.10},
		{regexp.MustCompile(`(?i)\b(fix|repair|debug|troubleshoot)\b`), -0.10},
	},
	completion: []rule{
		{regexp.MustCompile(`(?i)\b(complete|completed|done|finished|ready|success)\b`), 0.05},
		{regexp.MustCompile(`(?i)\b(therefore|thus|in conclusion|as a result)\b`), 0.05},
	},
}

// Score rates a response text. Empty or whitespace-only text scores 0.
// Longer, structured, decisive text scores higher; hedging and error talk
// score lower. The result is clamped to [0, 1].
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	score := baseConfidence

	switch length := len(text); {
	case length < shortResponseChars:
		score -= 0.30
	case length > longResponseChars:
		score += 0.10
	}
	if len(text) > veryLongChars {
		score += 0.05
	}

	for _, group := range [][]rule{
		defaultRules.structure,
		defaultRules.uncertainty,
		defaultRules.errors,
		defaultRules.completion,
	} {
		for _, r := range group {
			if r.pattern.MatchString(text) {
				score += r.weight
			}
		}
	}

	return clamp(score)
}

var (
	keywordPattern = regexp.MustCompile(`\b\w{5,}\b`)

	// Filler words that carry no task signal.
	keywordStopList = map[string]struct{}{
		"about":  {},
		"could":  {},
		"would":  {},
		"should": {},
	}
)

// ScoreWithTask extends Score with a keyword-coverage bonus: the fraction
// of significant task words (≥5 chars, stop-list excluded) present in the
// response adds up to 0.10.
func ScoreWithTask(text, task string) float64 {
	score := Score(text)
	if score == 0.0 {
		return score
	}

	keywords := TaskKeywords(task)
	if len(keywords) == 0 {
		return score
	}

	textLower := strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(textLower, kw) {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(keywords))
	return clamp(score + coverage*0.10)
}

// TaskKeywords extracts the significant words from a task description,
// lowercased, in order of first appearance, without duplicates.
func TaskKeywords(task string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, word := range keywordPattern.FindAllString(task, -1) {
		lower := strings.ToLower(word)
		if _, stop := keywordStopList[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, lower)
	}

	return keywords
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
