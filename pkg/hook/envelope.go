package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
)

// DefaultEventName is reported when the input does not name an event.
const DefaultEventName = "UserPromptSubmit"

const roleUser = "user"

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input is the request envelope received from the host.
type Input struct {
	SessionID      string    `json:"session_id,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	CWD            string    `json:"cwd,omitempty"`
	HookEventName  string    `json:"hook_event_name,omitempty"`
	Prompt         string    `json:"prompt,omitempty"`
	Messages       []Message `json:"messages,omitempty"`
}

// DecodeInput reads an [Input] from r. Empty input decodes to a zero value.
func DecodeInput(r io.Reader) (Input, error) {
	var in Input

	err := json.NewDecoder(r).Decode(&in)
	if errors.Is(err, io.EOF) {
		return Input{}, nil
	}
	if err != nil {
		return Input{}, fmt.Errorf("decode hook input: %w", err)
	}

	return in, nil
}

// LatestUserMessage returns the content of the last user message, falling
// back to the prompt.
func (in Input) LatestUserMessage() string {
	for i := len(in.Messages) - 1; i >= 0; i-- {
		m := in.Messages[i]
		if strings.EqualFold(m.Role, roleUser) {
			if text := strings.TrimSpace(m.Content); text != "" {
				return text
			}
		}
	}

	return strings.TrimSpace(in.Prompt)
}

func (in Input) eventName() string {
	if in.HookEventName != "" {
		return in.HookEventName
	}

	return DefaultEventName
}

// SpecificOutput carries the text injected into the host's context.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// MatchedRule is a selected rule and its score.
type MatchedRule struct {
	Path    string   `json:"path"`
	Reasons []string `json:"reasons,omitempty"`
	Score   int      `json:"score"`
	Tokens  int      `json:"estimatedTokens"`
}

// Metadata describes how an injection was produced.
type Metadata struct {
	Timings         map[string]float64    `json:"timingsMs"`
	RequestID       string                `json:"requestId"`
	Context         detect.ProjectContext `json:"context"`
	Intent          intent.Intent         `json:"intent"`
	Matched         []MatchedRule         `json:"matched"`
	Resolved        []string              `json:"resolved"`
	EstimatedTokens int                   `json:"estimatedTokens"`
}

// Output is the response envelope returned to the host. Continue is always
// true.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
	Metadata           *Metadata       `json:"metadata,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
	Continue           bool            `json:"continue"`
}

// NoInjection returns the benign result that lets the host proceed without
// additional context.
func NoInjection() Output {
	return Output{Continue: true}
}

// Injected reports whether the output carries additional context.
func (o Output) Injected() bool {
	return o.HookSpecificOutput != nil && o.HookSpecificOutput.AdditionalContext != ""
}

// Encode writes the output as a single JSON document.
func (o Output) Encode(w io.Writer) error {
	err := json.NewEncoder(w).Encode(o)
	if err != nil {
		return fmt.Errorf("encode hook output: %w", err)
	}

	return nil
}
