package hook

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/selection"
)

// InjectionHeader opens every injection block.
const InjectionHeader = "# Project Rules (rulecat)"

// SystemMessage returns the short human-readable summary shown by the host,
// e.g. "rulecat: 3 rules (~2,400 tokens) for go/gin".
func SystemMessage(rules, tokens int, pc detect.ProjectContext) string {
	return fmt.Sprintf("rulecat: %s (~%s tokens) for %s",
		english.Plural(rules, "rule", ""),
		humanize.Comma(int64(tokens)),
		pc.Summary(),
	)
}

// Format renders the injection block: a header, the project and intent
// summary, the selected rules, then each resolved rule under its title.
func Format(pc detect.ProjectContext, in intent.Intent, selected []selection.Scored, rules []content.Rule) string {
	var b strings.Builder

	b.WriteString(InjectionHeader)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**Project:** %s (%s, %.0f%% confidence)\n", pc.Summary(), pc.Maturity, pc.Confidence*100)
	if len(pc.CloudProviders) > 0 {
		fmt.Fprintf(&b, "**Cloud:** %s\n", strings.Join(pc.CloudProviders, ", "))
	}

	fmt.Fprintf(&b, "**Intent:** %s / %s (%s urgency)\n", in.Category, in.Action, in.Urgency)
	if len(in.Topics) > 0 {
		fmt.Fprintf(&b, "**Topics:** %s\n", strings.Join(in.Topics, ", "))
	}

	resolved := make(map[string]bool, len(rules))
	for _, r := range rules {
		resolved[r.Path] = true
	}

	b.WriteString("\n## Selected Rules\n\n")
	for _, s := range selected {
		status := ""
		if !resolved[s.Rule.Path] {
			status = ", unavailable"
		}

		fmt.Fprintf(&b, "- %s (`%s`, ~%s tokens%s)\n",
			s.Rule.Title, s.Rule.Path, humanize.Comma(int64(s.Rule.EstimatedTokens)), status)
	}

	for _, r := range rules {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %s\n\n", r.Title)
		if r.Tip != "" {
			fmt.Fprintf(&b, "> Tip: %s\n\n", r.Tip)
		}

		b.WriteString(strings.TrimSpace(r.Content))
		b.WriteString("\n")
	}

	return b.String()
}
