package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/content"
)

// GetRulesParams defines parameters for the get_rules tool.
type GetRulesParams struct {
	Paths []string `json:"paths"`
}

// RuleContent is a resolved rule returned by get_rules.
type RuleContent struct {
	Path            string         `json:"path"`
	Title           string         `json:"title"`
	Tip             string         `json:"tip,omitempty"`
	Source          content.Source `json:"source"`
	Content         string         `json:"content"`
	EstimatedTokens int            `json:"estimatedTokens"`
}

// GetRulesResult contains the resolved rules and the paths that could not be
// resolved.
type GetRulesResult struct {
	Message string        `json:"message"`
	Rules   []RuleContent `json:"rules"`
	Missing []string      `json:"missing"`
}

func (s *Server) handleGetRules(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GetRulesParams],
) (*mcp.CallToolResultFor[GetRulesResult], error) {
	d := s.dispatcher

	result := GetRulesResult{
		Rules:   []RuleContent{},
		Missing: []string{},
	}

	infos := make([]catalog.RuleInfo, 0, len(params.Arguments.Paths))
	for _, p := range params.Arguments.Paths {
		info, err := d.Catalog().Get(p)
		if err != nil {
			result.Missing = append(result.Missing, p)
			continue
		}

		infos = append(infos, info)
	}

	resolved := map[string]bool{}
	for _, r := range d.Fetcher().Fetch(ctx, infos) {
		resolved[r.Path] = true
		result.Rules = append(result.Rules, RuleContent{
			Path:            r.Path,
			Title:           r.Title,
			Tip:             r.Tip,
			Source:          r.Source,
			Content:         truncateString(r.Content, maxContentLen),
			EstimatedTokens: r.EstimatedTokens,
		})
	}

	for _, info := range infos {
		if !resolved[info.Path] {
			result.Missing = append(result.Missing, info.Path)
		}
	}

	result.Message = fmt.Sprintf("Loaded %s.", english.Plural(len(result.Rules), "rule", ""))
	if len(result.Missing) > 0 {
		result.Message += fmt.Sprintf(" Could not load: %s. Use EXACT paths from select_rules or search_rules.",
			strings.Join(result.Missing, ", "))
	}

	text := make([]string, 0, len(result.Rules)+1)
	text = append(text, result.Message)

	for _, r := range result.Rules {
		text = append(text, fmt.Sprintf("## %s (%s)\n\n%s", r.Title, r.Path, r.Content))
	}

	return &mcp.CallToolResultFor[GetRulesResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: strings.Join(text, "\n\n"),
			},
		},
		StructuredContent: result,
	}, nil
}
