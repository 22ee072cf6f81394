package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/macropower/rulecat/pkg/catalog"
)

// Source records where a [Rule] body came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// tipPattern matches "> Tip: ..." and "> **Tip:** ..." lines.
var tipPattern = regexp.MustCompile(`(?m)^>\s*(?:\*\*Tip:?\*\*:?|Tip:)\s*(.+?)\s*$`)

// Rule is a [catalog.RuleInfo] with its resolved body.
type Rule struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Source    Source    `json:"source"`
	Content   string    `json:"content"`
	Tip       string    `json:"tip,omitempty"`
	catalog.RuleInfo
}

// NewRule wraps a resolved body into a [Rule].
func NewRule(info catalog.RuleInfo, body string, fetchedAt time.Time) Rule {
	return Rule{
		RuleInfo:  info,
		Content:   body,
		Tip:       ParseTip(body),
		Source:    SourceRemote,
		FetchedAt: fetchedAt,
	}
}

// Valid reports whether the rule has a body and belongs to path.
func (r Rule) Valid(path string) bool {
	return r.Path == path && strings.TrimSpace(r.Content) != ""
}

// ParseTip returns the first tip line found in body, or an empty string.
func ParseTip(body string) string {
	m := tipPattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}

	return m[1]
}
