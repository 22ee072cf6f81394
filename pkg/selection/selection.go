package selection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
)

// Params are the per-request selection inputs.
type Params struct {
	// Weights overrides [DefaultWeights].
	Weights *Weights
	// Boosts overrides [DefaultBoosts].
	Boosts map[intent.Category][]string
	// Category selects the boosted topic set. Empty disables boosting.
	Category intent.Category
	Intent   intent.Intent
	Project  detect.ProjectContext
	// MaxRules caps the number of selected rules.
	MaxRules int
	// MaxTokens caps the cumulative estimated tokens, except that the first
	// ranked rule is always admitted.
	MaxTokens int
	// MinScore excludes rules scoring below it.
	MinScore int
}

// Scored is a rule with its score and the reasons behind it.
type Scored struct {
	Rule    catalog.RuleInfo `json:"rule"`
	Reasons []string         `json:"reasons,omitempty"`
	Score   int              `json:"score"`
}

func (p Params) weights() Weights {
	if p.Weights != nil {
		return *p.Weights
	}

	return DefaultWeights()
}

func (p Params) boosted() []string {
	if p.Category == "" {
		return nil
	}

	if p.Boosts != nil {
		return p.Boosts[p.Category]
	}

	return DefaultBoosts[p.Category]
}

// Score computes the score of a single rule.
func Score(r catalog.RuleInfo, p Params) Scored {
	return score(r, p, p.weights(), p.boosted())
}

func score(r catalog.RuleInfo, p Params, w Weights, boosted []string) Scored {
	s := Scored{Rule: r}

	if r.AlwaysLoad {
		s.Score += w.AlwaysLoad
		s.Reasons = append(s.Reasons, "always-load")
	}

	if r.Language != "" && slices.Contains(p.Project.Languages, r.Language) {
		s.Score += w.Language
		s.Reasons = append(s.Reasons, "language:"+r.Language)
	}

	if r.Framework != "" && slices.Contains(p.Project.Frameworks, r.Framework) {
		s.Score += w.Framework
		s.Reasons = append(s.Reasons, "framework:"+r.Framework)
	}

	if r.CloudProvider != "" && slices.Contains(p.Project.CloudProviders, r.CloudProvider) {
		s.Score += w.Cloud
		s.Reasons = append(s.Reasons, "cloud:"+r.CloudProvider)
	}

	if slices.ContainsFunc(r.Topics, func(t string) bool { return slices.Contains(boosted, t) }) {
		s.Score += w.CategoryBoost
		s.Reasons = append(s.Reasons, "boost:"+string(p.Category))
	}

	var shared []string

	for _, t := range r.Topics {
		if slices.Contains(p.Intent.Topics, t) {
			shared = append(shared, t)
		}
	}

	if len(shared) > 0 {
		s.Score += w.Topic * min(len(shared), w.MaxTopics)
		s.Reasons = append(s.Reasons, "topics:"+strings.Join(shared, ","))
	}

	if p.Project.Maturity != "" && r.AppliesTo(p.Project.Maturity) {
		s.Score += w.Maturity
		s.Reasons = append(s.Reasons, "maturity:"+p.Project.Maturity)
	}

	return s
}

// Rank scores every rule and sorts them by descending score. Rules with equal
// scores keep their catalog order.
func Rank(rules []catalog.RuleInfo, p Params) []Scored {
	w := p.weights()
	boosted := p.boosted()

	ranked := make([]Scored, 0, len(rules))
	for _, r := range rules {
		ranked = append(ranked, score(r, p, w, boosted))
	}

	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return b.Score - a.Score
	})

	return ranked
}

// Select ranks rules and greedily takes them in order until MaxRules is
// reached or the next rule would push the running token sum past MaxTokens.
// The first rule is admitted even if it alone exceeds MaxTokens.
func Select(rules []catalog.RuleInfo, p Params) []Scored {
	if p.MaxRules <= 0 || len(rules) == 0 {
		return []Scored{}
	}

	selected := make([]Scored, 0, min(p.MaxRules, len(rules)))
	tokens := 0

	for _, s := range Rank(rules, p) {
		if len(selected) == p.MaxRules {
			break
		}

		if s.Score < p.MinScore {
			break
		}

		if len(selected) > 0 && tokens+s.Rule.EstimatedTokens > p.MaxTokens {
			break
		}

		selected = append(selected, s)
		tokens += s.Rule.EstimatedTokens
	}

	return selected
}

// TotalTokens returns the cumulative estimated tokens of a selection.
func TotalTokens(selected []Scored) int {
	total := 0
	for _, s := range selected {
		total += s.Rule.EstimatedTokens
	}

	return total
}

// Paths returns the rule paths of a selection, in order.
func Paths(selected []Scored) []string {
	paths := make([]string, 0, len(selected))
	for _, s := range selected {
		paths = append(paths, s.Rule.Path)
	}

	return paths
}

func (s Scored) String() string {
	return fmt.Sprintf("%s (%d)", s.Rule.Path, s.Score)
}
