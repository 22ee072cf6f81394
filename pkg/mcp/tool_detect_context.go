package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/macropower/rulecat/pkg/detect"
)

// DetectContextParams defines parameters for the detect_context tool.
type DetectContextParams struct {
	Path string `json:"path,omitempty"`
}

// DetectContextResult contains the detected project context.
type DetectContextResult struct {
	Message string                `json:"message"`
	Summary string                `json:"summary"`
	Context detect.ProjectContext `json:"context"`
}

func (s *Server) handleDetectContext(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[DetectContextParams],
) (*mcp.CallToolResultFor[DetectContextResult], error) {
	dir, err := s.resolve(params.Arguments.Path)
	if err != nil {
		return nil, err
	}

	pc := s.dispatcher.Detector().Detect(ctx, dir)

	result := DetectContextResult{
		Context: pc,
		Summary: pc.Summary(),
	}

	if pc.IsEmpty() {
		result.Message = fmt.Sprintf("No languages, frameworks or cloud providers detected in %s.", pc.WorkingDirectory)
	} else {
		result.Message = fmt.Sprintf("Detected %s (%s) in %s.", result.Summary, pc.Maturity, pc.WorkingDirectory)
	}

	return &mcp.CallToolResultFor[DetectContextResult]{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: result.Message,
			},
		},
		StructuredContent: result,
	}, nil
}
