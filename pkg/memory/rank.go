package memory

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Record is a stored long-term memory as seen by the ranking step.
type Record struct {
	ID        string
	Text      string
	UpdatedAt time.Time
}

// Rank orders records by how many distinct query terms they contain, most
// first, breaking ties newest first, and returns at most topK texts.
// Backends without native search use this.
func Rank(records []Record, query string, topK int) []string {
	if topK <= 0 || len(records) == 0 {
		return []string{}
	}
	terms := Terms(query)

	type scored struct {
		rec   Record
		score int
	}
	all := make([]scored, 0, len(records))
	for _, r := range records {
		all = append(all, scored{rec: r, score: overlap(terms, Terms(r.Text))})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].rec.UpdatedAt.After(all[j].rec.UpdatedAt)
	})

	if len(all) > topK {
		all = all[:topK]
	}
	out := make([]string, 0, len(all))
	for _, s := range all {
		out = append(out, s.rec.Text)
	}
	return out
}

// Terms splits s into a set of lowercase words.
func Terms(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
