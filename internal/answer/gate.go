// Package answer decides whether retrieved evidence supports answering and
// assembles the context handed to the rewrite model.
package answer

import (
	"strings"

	"github.com/contextforge/contextforge/internal/domain"
)

const (
	// Score concentration needs the top hit plus at least two others to
	// compare against.
	minConcentrationCandidates = 3
	concentrationRatio         = 1.5

	// Chunk agreement inspects at most this many top candidates.
	agreementWindow = 5
	agreementRatio  = 0.1

	rerankGap = 0.05

	epsilon = 1e-9
)

// IsAnswerable applies three statistical signals to a descending-score
// candidate list. All three must pass. Fewer than three candidates always
// fails, since score concentration cannot be estimated.
func IsAnswerable(candidates []domain.ScoredCandidate) bool {
	return scoreConcentrated(candidates) &&
		chunksAgree(candidates) &&
		decisiveTop(candidates)
}

// scoreConcentrated checks that the top score clearly dominates the mean of
// the rest.
func scoreConcentrated(candidates []domain.ScoredCandidate) bool {
	if len(candidates) < minConcentrationCandidates {
		return false
	}

	var rest float64
	for _, c := range candidates[1:] {
		rest += c.Score
	}
	mean := rest / float64(len(candidates)-1)

	return candidates[0].Score/(mean+epsilon) >= concentrationRatio
}

// chunksAgree checks lexical consistency across the top candidate texts: the
// words shared by all of them must cover a minimum fraction of the first
// text's words.
func chunksAgree(candidates []domain.ScoredCandidate) bool {
	if len(candidates) < 2 {
		return false
	}
	top := candidates
	if len(top) > agreementWindow {
		top = top[:agreementWindow]
	}

	firstWords := strings.Fields(strings.ToLower(top[0].Text))
	if len(firstWords) == 0 {
		return false
	}

	common := make(map[string]struct{}, len(firstWords))
	for _, w := range firstWords {
		common[w] = struct{}{}
	}
	for _, c := range top[1:] {
		seen := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(c.Text)) {
			seen[w] = struct{}{}
		}
		for w := range common {
			if _, ok := seen[w]; !ok {
				delete(common, w)
			}
		}
	}

	return float64(len(common))/float64(len(firstWords)) >= agreementRatio
}

// decisiveTop checks the score gap between rank 1 and rank 2.
func decisiveTop(candidates []domain.ScoredCandidate) bool {
	if len(candidates) < 2 {
		return false
	}
	return candidates[0].Score-candidates[1].Score >= rerankGap
}
