package mcp

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rulecat/pkg/catalog"
)

const defaultSearchLimit = 10

// SearchRulesParams defines parameters for the search_rules tool.
type SearchRulesParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchHit is a rule matched by search_rules.
type SearchHit struct {
	Path            string           `json:"path"`
	Title           string           `json:"title"`
	Category        catalog.Category `json:"category"`
	Score           int              `json:"score"`
	EstimatedTokens int              `json:"estimatedTokens"`
}

// SearchRulesResult contains the matching rules, best match first.
type SearchRulesResult struct {
	Message string      `json:"message"`
	Rules   []SearchHit `json:"rules"`
}

func (s *Server) handleSearchRules(
	_ context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[SearchRulesParams],
) (*mcp.CallToolResultFor[SearchRulesResult], error) {
	limit := params.Arguments.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	matches := s.dispatcher.Catalog().Search(params.Arguments.Query, limit)

	result := SearchRulesResult{
		Rules: make([]SearchHit, 0, len(matches)),
	}

	for _, m := range matches {
		result.Rules = append(result.Rules, SearchHit{
			Path:            m.Rule.Path,
			Title:           m.Rule.Title,
			Category:        m.Rule.Category,
			Score:           m.Score,
			EstimatedTokens: m.Rule.EstimatedTokens,
		})
	}

	result.Message = fmt.Sprintf("Found %s matching %q.",
		english.Plural(len(result.Rules), "rule", ""), params.Arguments.Query)

	return &mcp.CallToolResultFor[SearchRulesResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: result.Message,
			},
		},
		StructuredContent: result,
	}, nil
}
