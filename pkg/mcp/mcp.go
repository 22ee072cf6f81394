// Package mcp exposes rule selection over the Model Context Protocol.
package mcp

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

const (
	name         = "rulecat"
	instructions = `MCP Server 'rulecat' selects coding rules and guidelines that fit the current project and task.

When to use these tools:
- Before starting a task, to load the conventions that apply to the project's languages, frameworks and cloud providers
- When the task changes focus (for example from implementing a feature to debugging or writing tests)
- When looking for a specific guideline by name

REQUIRED workflow:
1. Use 'select_rules' with the user's request and the project directory to get a ranked list of rule paths
2. STOP and READ the selected rules and the reasons they were selected
3. Use 'get_rules' with the EXACT paths from 'select_rules' or 'search_rules' output to load their content
4. Follow the loaded rules while completing the task

Use 'detect_context' to inspect what was detected for a directory, and 'search_rules' to find rules by name.
`

	// maxContentLen bounds the content of a single rule returned by get_rules.
	maxContentLen = 64 * 1024
)

func newPathSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "The project directory to inspect, relative to the server's working directory. Defaults to the working directory.",
	}
}

// truncateString truncates a string to maxLen bytes if needed.
func truncateString(str string, maxLen int) string {
	if len(str) > maxLen {
		return str[:maxLen] + "\n[OUTPUT TRUNCATED]"
	}

	return str
}
