package notebook

import (
	"github.com/sahilm/fuzzy"
)

// Match is the renderer metadata of an item matching a FuzzyFilter.
type Match struct {
	Score int

	// MatchedIndexes are byte offsets into the item's Label.
	MatchedIndexes []int
}

// FuzzyFilter matches item labels against Pattern. Items that do not
// match, and every item when Pattern is empty, stay unfiltered.
type FuzzyFilter struct {
	Pattern string
}

func (f FuzzyFilter) Filter(item *Item) (Match, bool) {
	if f.Pattern == "" {
		return Match{}, false
	}
	matches := fuzzy.Find(f.Pattern, []string{item.Label()})
	if len(matches) == 0 {
		return Match{}, false
	}
	return Match{Score: matches[0].Score, MatchedIndexes: matches[0].MatchedIndexes}, true
}
