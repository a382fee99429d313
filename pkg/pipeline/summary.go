package pipeline

import (
	"sort"

	"github.com/rs/zerolog"
)

// Summary aggregates the recoverable incidents of a run. It is the
// operator's primary QA signal: a clean run logs nothing, and every
// non-zero category points at data that needs review.
type Summary struct {
	counts map[string]int
}

func NewSummary() *Summary {
	return &Summary{counts: make(map[string]int)}
}

// Add records n incidents in a category. Zero and negative n are ignored.
func (s *Summary) Add(category string, n int) {
	if n > 0 {
		s.counts[category] += n
	}
}

// Count returns the tally for one category.
func (s *Summary) Count(category string) int {
	return s.counts[category]
}

// Total returns the number of incidents across all categories.
func (s *Summary) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

// Log writes one line per non-zero category, in stable order.
func (s *Summary) Log(log zerolog.Logger) {
	if len(s.counts) == 0 {
		log.Info().Msg("run summary: clean, no incidents")
		return
	}
	categories := make([]string, 0, len(s.counts))
	for c := range s.counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		log.Warn().Str("category", c).Int("count", s.counts[c]).Msg("run summary")
	}
}
