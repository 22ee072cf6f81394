package hook_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/hook"
)

func TestInput_LatestUserMessage(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   hook.Input
		want string
	}{
		"prompt": {
			in:   hook.Input{Prompt: "  write tests  "},
			want: "write tests",
		},
		"last user message wins": {
			in: hook.Input{
				Prompt: "ignored",
				Messages: []hook.Message{
					{Role: "user", Content: "first"},
					{Role: "assistant", Content: "reply"},
					{Role: "User", Content: "second"},
					{Role: "assistant", Content: "reply"},
				},
			},
			want: "second",
		},
		"blank user message skipped": {
			in: hook.Input{Messages: []hook.Message{
				{Role: "user", Content: "first"},
				{Role: "user", Content: " "},
			}},
			want: "first",
		},
		"no user message falls back to prompt": {
			in: hook.Input{
				Prompt:   "deploy it",
				Messages: []hook.Message{{Role: "system", Content: "be brief"}},
			},
			want: "deploy it",
		},
		"empty": {},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.in.LatestUserMessage())
		})
	}
}

func TestDecodeInput(t *testing.T) {
	t.Parallel()

	in, err := hook.DecodeInput(strings.NewReader(`{
  "session_id": "abc",
  "cwd": "/src/api",
  "hook_event_name": "UserPromptSubmit",
  "prompt": "add caching"
}`))
	require.NoError(t, err)
	assert.Equal(t, hook.Input{
		SessionID:     "abc",
		CWD:           "/src/api",
		HookEventName: "UserPromptSubmit",
		Prompt:        "add caching",
	}, in)

	in, err = hook.DecodeInput(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, hook.Input{}, in)

	_, err = hook.DecodeInput(strings.NewReader("{"))
	require.Error(t, err)
}

func TestOutput_Encode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, hook.NoInjection().Encode(&buf))
	assert.JSONEq(t, `{"continue": true}`, buf.String())
}

func TestSystemMessage(t *testing.T) {
	t.Parallel()

	pc := detect.EmptyContext("/src")
	assert.Equal(t, "rulecat: 1 rule (~800 tokens) for unknown project", hook.SystemMessage(1, 800, pc))

	pc.Languages = []string{"python"}
	pc.Frameworks = []string{"fastapi"}
	assert.Equal(t, "rulecat: 4 rules (~12,500 tokens) for python/fastapi", hook.SystemMessage(4, 12500, pc))
}
