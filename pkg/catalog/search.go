package catalog

import (
	"github.com/sahilm/fuzzy"
)

// Match is a fuzzy search hit.
type Match struct {
	Rule  RuleInfo `json:"rule"`
	Score int      `json:"score"`
}

type searchSource []RuleInfo

func (s searchSource) String(i int) string {
	return s[i].Path + " " + s[i].Title
}

func (s searchSource) Len() int {
	return len(s)
}

// Search returns the rules whose path or title fuzzy-match the query, best
// match first. A limit of zero or less returns every match.
func (c *Catalog) Search(query string, limit int) []Match {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, searchSource(c.rules))

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, Match{
			Rule:  c.rules[m.Index],
			Score: m.Score,
		})
	}

	return out
}
