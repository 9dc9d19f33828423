// Package ranking decides which snippets match a query and in what order.
//
// Every surface (daemon API, terminal picker, overlays fed through the relay)
// calls the same functions here, so a query ranks identically everywhere.
// Nothing in this package touches the store: callers pass the snippets in.
//
// SCORING:
// A snippet survives the filter when its name or content contains the query,
// case-insensitively. It then gets the score of the FIRST rule it satisfies:
//
//	name == query          1000
//	name starts with query  500
//	name contains query     100
//	content contains query   10
//
// Scores never add up. Results are sorted by score, highest first, with a
// stable sort so equal scores keep the stored order (which is the user's
// manual pin order).
//
// Matching is a plain substring test. "foo bar" only matches text containing
// "foo bar" verbatim; it is not split into words.
package ranking

import (
	"sort"
	"strings"

	"github.com/sakif/snippet-picker/internal/model"
)

const (
	ScoreExactName   = 1000
	ScoreNamePrefix  = 500
	ScoreNameContain = 100
	ScoreContent     = 10
)

// NormalizeQuery trims surrounding whitespace. A query that is only
// whitespace becomes "", which Rank treats as "no filter".
func NormalizeQuery(q string) string {
	return strings.TrimSpace(q)
}

// Score returns the score of s against a non-empty query, and false when
// the snippet does not match at all.
func Score(s model.Snippet, query string) (int, bool) {
	q := strings.ToLower(query)
	name := strings.ToLower(s.Name)

	switch {
	case name == q:
		return ScoreExactName, true
	case strings.HasPrefix(name, q):
		return ScoreNamePrefix, true
	case strings.Contains(name, q):
		return ScoreNameContain, true
	case strings.Contains(strings.ToLower(s.Content), q):
		return ScoreContent, true
	}
	return 0, false
}

// Rank filters and orders snippets for query.
//
// An empty query returns every snippet in input order with score 0.
// The input slice is never modified.
func Rank(snippets []model.Snippet, query string) []model.ScoredSnippet {
	if query == "" {
		out := make([]model.ScoredSnippet, len(snippets))
		for i, s := range snippets {
			out[i] = model.ScoredSnippet{Snippet: s}
		}
		return out
	}

	out := make([]model.ScoredSnippet, 0, len(snippets))
	for _, s := range snippets {
		if score, ok := Score(s, query); ok {
			out = append(out, model.ScoredSnippet{Snippet: s, Score: score})
		}
	}

	// SliceStable, not Slice: ties must keep their stored order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// RankGlobal ranks across every mode and labels each result with the name of
// the mode it belongs to. Snippets whose mode is unknown (or unset) are
// labelled with the default mode's name. Labels are added after ranking and
// never influence the order.
func RankGlobal(snippets []model.Snippet, modes []model.Mode, query string) []model.ScoredSnippet {
	names := make(map[string]string, len(modes))
	for _, m := range modes {
		names[m.ID] = m.Name
	}
	fallback := model.DefaultModeName
	if n, ok := names[model.DefaultModeID]; ok {
		fallback = n
	}

	ranked := Rank(snippets, query)
	for i := range ranked {
		if n, ok := names[ranked[i].EffectiveModeID()]; ok {
			ranked[i].ModeName = n
		} else {
			ranked[i].ModeName = fallback
		}
	}
	return ranked
}

// FilterMode returns the snippets belonging to modeID, in global order.
// A snippet with no stored mode belongs to the default mode.
func FilterMode(snippets []model.Snippet, modeID string) []model.Snippet {
	out := make([]model.Snippet, 0, len(snippets))
	for _, s := range snippets {
		if s.EffectiveModeID() == modeID {
			out = append(out, s)
		}
	}
	return out
}
