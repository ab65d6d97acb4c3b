package search

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Matching tolerance: the maximum normalized edit distance a field may
// have from the query and still count as a match. Suggestions use a
// looser bound than regular queries.
const (
	queryTolerance      = 0.4
	suggestionTolerance = 0.6
)

// MinQueryLength is the minimum number of characters a query must have.
const MinQueryLength = 2

type weightedField struct {
	text   string
	weight float64
}

// fieldScore returns the normalized edit distance between the query and
// the closest word of the field, in [0, 1]. A literal substring match
// scores 0.
func fieldScore(query, field string) (float64, bool) {
	if field == "" {
		return 0, false
	}
	f := strings.ToLower(field)
	if strings.Contains(f, query) {
		return 0, true
	}

	best := 1.0
	matched := false
	qLen := utf8.RuneCountInString(query)
	for _, word := range strings.Fields(f) {
		wLen := utf8.RuneCountInString(word)
		denom := qLen
		if wLen > denom {
			denom = wLen
		}
		d := float64(fuzzy.LevenshteinDistance(query, word)) / float64(denom)
		if d < best {
			best = d
			matched = true
		}
	}
	return best, matched
}

// scoreDocument scores doc against query. Lower is better. The score of
// the best matching field wins; the field weight shifts scores so that,
// at equal edit distance, a title match outranks a tag or author match.
func scoreDocument(query string, doc Document, tolerance float64) (float64, bool) {
	fields := []weightedField{
		{doc.Title, 0.4},
		{doc.Content, 0.3},
		{doc.Tags, 0.2},
		{doc.Authors, 0.1},
	}

	best := -1.0
	for _, f := range fields {
		raw, ok := fieldScore(query, f.text)
		if !ok || raw > tolerance {
			continue
		}
		weighted := (raw + 0.05) * (1 - f.weight)
		if best < 0 || weighted < best {
			best = weighted
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
