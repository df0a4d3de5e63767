package train

import (
	"strings"

	"github.com/agext/levenshtein"
)

// fuzzyCutoff is the minimum similarity for a column name to count as a
// plausible misspelling of the requested one.
const fuzzyCutoff = 0.6

// resolveColumn maps a requested column name onto the columns that
// actually exist: exact match, then case-insensitive match, then the
// most similar name above the cutoff. Returns the resolved name and
// whether anything matched.
func resolveColumn(want string, available []string) (string, bool) {
	for _, c := range available {
		if c == want {
			return c, true
		}
	}
	for _, c := range available {
		if strings.EqualFold(c, want) {
			return c, true
		}
	}

	best := ""
	bestScore := fuzzyCutoff
	for _, c := range available {
		if score := levenshtein.Similarity(want, c, nil); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, best != ""
}
