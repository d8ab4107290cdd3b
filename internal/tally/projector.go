// Package tally projects a poll's vote rows into per-option counts and
// percentages. Both the request/response path and the live broadcast path
// derive their tallies here, so the two can never diverge.
package tally

import "github.com/DevOwais28/wepollin/internal/models"

// Tally is the derived result of a poll. It is recomputed from the full vote
// set on demand and never persisted.
type Tally struct {
	Counts      []int     `json:"counts"`
	Total       int       `json:"total"`
	Percentages []float64 `json:"percentages"`
}

// Project computes the tally for the given option list and vote rows. Votes
// with an out-of-range option index are treated as corrupt rows and excluded;
// the projector never trusts upstream validation when fed a raw row set.
// Percentages are plain float64 ratios; rounding is a presentation concern.
func Project(options []string, votes []models.Vote) Tally {
	counts := make([]int, len(options))
	total := 0
	for _, vote := range votes {
		if vote.OptionIndex < 0 || vote.OptionIndex >= len(options) {
			continue
		}
		counts[vote.OptionIndex]++
		total++
	}

	percentages := make([]float64, len(options))
	if total > 0 {
		for i, n := range counts {
			percentages[i] = float64(n) / float64(total) * 100
		}
	}

	return Tally{Counts: counts, Total: total, Percentages: percentages}
}

// Results converts a tally into the per-option wire shape of the live `vote`
// event.
func (t Tally) Results(options []string) []models.OptionResult {
	results := make([]models.OptionResult, len(options))
	for i, option := range options {
		results[i] = models.OptionResult{
			Option:     option,
			Votes:      t.Counts[i],
			Percentage: t.Percentages[i],
		}
	}
	return results
}
