package analytics

import (
	"sort"
	"strings"
	"unicode"
)

// MinWordLength drops short tokens from the word cloud.
const MinWordLength = 3

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var stopWords = toSet(`a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from
further had has have having he her here hers herself him himself his how i if in into is it its itself
just me more most my myself no nor not now of off on once only or other our ours ourselves out over own
same she should so some such than that the their theirs them themselves then there these they this
those through to too under until up very was we were what when where which while who whom why will
with would you your yours yourself yourselves also really very much get got its it's i'm i've don't
didn't doesn't isn't wasn't`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// WordFrequencies counts lower-cased words across texts, ignoring stop words
// and words shorter than MinWordLength, most frequent first (ties
// alphabetical). limit <= 0 returns every word.
func WordFrequencies(texts []string, limit int) []WordCount {
	counts := make(map[string]int)
	for _, text := range texts {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		for _, w := range words {
			w = strings.Trim(w, "'")
			if len([]rune(w)) < MinWordLength {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
