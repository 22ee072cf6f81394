package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/selection"
)

var errEmptyPrompt = errors.New("INVALID INPUT ERROR: prompt must not be empty")

// SelectRulesParams defines parameters for the select_rules tool.
type SelectRulesParams struct {
	Prompt   string `json:"prompt"`
	Path     string `json:"path,omitempty"`
	MaxRules int    `json:"maxRules,omitempty"`
}

// SelectedRule is a rule chosen by select_rules.
type SelectedRule struct {
	Path            string           `json:"path"`
	Title           string           `json:"title"`
	Category        catalog.Category `json:"category"`
	Reasons         []string         `json:"reasons"`
	Score           int              `json:"score"`
	EstimatedTokens int              `json:"estimatedTokens"`
}

// SelectRulesResult contains the ranked selection for a request.
type SelectRulesResult struct {
	Message     string                `json:"message"`
	Rules       []SelectedRule        `json:"rules"`
	Intent      intent.Intent         `json:"intent"`
	Context     detect.ProjectContext `json:"context"`
	TotalTokens int                   `json:"totalTokens"`
}

func (s *Server) handleSelectRules(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[SelectRulesParams],
) (*mcp.CallToolResultFor[SelectRulesResult], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Prompt) == "" {
		return nil, errEmptyPrompt
	}

	dir, err := s.resolve(args.Path)
	if err != nil {
		return nil, err
	}

	d := s.dispatcher
	pc := d.Detector().Detect(ctx, dir)
	in := d.Classifier().Classify(args.Prompt)

	p := d.Params(pc, in)
	if args.MaxRules > 0 {
		p.MaxRules = args.MaxRules
	}

	selected := selection.Select(d.Catalog().List(), p)

	result := SelectRulesResult{
		Context:     pc,
		Intent:      in,
		Rules:       make([]SelectedRule, 0, len(selected)),
		TotalTokens: selection.TotalTokens(selected),
	}

	for _, sc := range selected {
		reasons := sc.Reasons
		if reasons == nil {
			reasons = []string{}
		}

		result.Rules = append(result.Rules, SelectedRule{
			Path:            sc.Rule.Path,
			Title:           sc.Rule.Title,
			Category:        sc.Rule.Category,
			Reasons:         reasons,
			Score:           sc.Score,
			EstimatedTokens: sc.Rule.EstimatedTokens,
		})
	}

	result.Message = fmt.Sprintf("Selected %s (~%s tokens) for %s, intent %s. Use get_rules with these paths to load them.",
		english.Plural(len(selected), "rule", ""),
		humanize.Comma(int64(result.TotalTokens)),
		pc.Summary(),
		in.Category,
	)

	return &mcp.CallToolResultFor[SelectRulesResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: result.Message,
			},
		},
		StructuredContent: result,
	}, nil
}
