package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/internal/cli"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/hook"
)

const (
	goModGin = `module example.com/api

go 1.25

require github.com/gin-gonic/gin v1.10.0
`

	catalogYAML = `rules:
  - path: base/code-quality.md
    title: Code Quality
    category: base
    alwaysLoad: true
    estimatedTokens: 800
  - path: languages/go/coding-standards.md
    title: Go Coding Standards
    category: language
    language: go
    estimatedTokens: 1200
  - path: frameworks/gin/best-practices.md
    title: Gin Best Practices
    category: framework
    framework: gin
    estimatedTokens: 1000
  - path: languages/python/coding-standards.md
    title: Python Coding Standards
    category: language
    language: python
    estimatedTokens: 1000
`

	noStoreTemplate = `apiVersion: rulecat.jacobcolvin.com/v1beta1
kind: Configuration
catalogPath: %s
`

	configTemplate = `apiVersion: rulecat.jacobcolvin.com/v1beta1
kind: Configuration
enableAutoLoad: %t
catalogPath: %s
store:
  kind: dir
  dir: %s
fetch:
  attempts: 1
`
)

var ruleBodies = map[string]string{
	"base/code-quality.md":             "# Code Quality\n\n> Tip: small functions\n\nKeep functions short.\n",
	"languages/go/coding-standards.md": "# Go\n\nWrap errors with %w.\n",
	"frameworks/gin/best-practices.md": "# Gin\n\nUse route groups.\n",
}

type fixture struct {
	project    string
	config     string
	disabled   string
	zeroBudget string
	noStore    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	root := t.TempDir()

	project := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(project, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(project, "go.mod"), []byte(goModGin), 0o600))

	rules := filepath.Join(root, "rules")
	for path, body := range ruleBodies {
		full := filepath.Join(rules, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
	}

	catalogPath := filepath.Join(root, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogYAML), 0o600))

	f := fixture{
		project:    project,
		config:     filepath.Join(root, "config.yaml"),
		disabled:   filepath.Join(root, "disabled.yaml"),
		zeroBudget: filepath.Join(root, "zero-budget.yaml"),
		noStore:    filepath.Join(root, "no-store.yaml"),
	}

	require.NoError(t, os.WriteFile(f.config, fmt.Appendf(nil, configTemplate, true, catalogPath, rules), 0o600))
	require.NoError(t, os.WriteFile(f.disabled, fmt.Appendf(nil, configTemplate, false, catalogPath, rules), 0o600))
	require.NoError(t, os.WriteFile(f.zeroBudget,
		fmt.Appendf(nil, configTemplate+"maxRules: 0\n", true, catalogPath, rules), 0o600))
	require.NoError(t, os.WriteFile(f.noStore, fmt.Appendf(nil, noStoreTemplate, catalogPath), 0o600))

	return f
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), ".env")))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(t.Context())

	return stdout.String(), err
}

func hookInput(t *testing.T, prompt, cwd string) string {
	t.Helper()

	b, err := json.Marshal(hook.Input{Prompt: prompt, CWD: cwd, HookEventName: "UserPromptSubmit"})
	require.NoError(t, err)

	return string(b)
}

func TestHookCmd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tcs := map[string]struct {
		stdin        func() string
		args         []string
		wantContains []string
		wantInjected bool
	}{
		"injects rules for a gin project": {
			stdin: func() string { return hookInput(t, "add a login endpoint", f.project) },
			args:  []string{"--config", f.config},
			wantContains: []string{
				"# Project Rules (rulecat)",
				"Gin Best Practices",
				"Go Coding Standards",
				"Tip: small functions",
			},
			wantInjected: true,
		},
		"max rules flag": {
			stdin:        func() string { return hookInput(t, "add a login endpoint", f.project) },
			args:         []string{"--config", f.config, "--max-rules", "1"},
			wantContains: []string{"Code Quality"},
			wantInjected: true,
		},
		"empty prompt": {
			stdin: func() string { return hookInput(t, "   ", f.project) },
			args:  []string{"--config", f.config},
		},
		"empty stdin": {
			stdin: func() string { return "" },
			args:  []string{"--config", f.config},
		},
		"invalid json": {
			stdin: func() string { return "{not json" },
			args:  []string{"--config", f.config},
		},
		"auto load disabled": {
			stdin: func() string { return hookInput(t, "add a login endpoint", f.project) },
			args:  []string{"--config", f.disabled},
		},
		"zero max rules in config": {
			stdin: func() string { return hookInput(t, "add a login endpoint", f.project) },
			args:  []string{"--config", f.zeroBudget},
		},
		"invalid config": {
			stdin: func() string { return hookInput(t, "add a login endpoint", f.project) },
			args:  []string{"--config", writeFile(t, "config.yaml", "maxRules: -1\n")},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stdout, err := execute(t, tc.stdin(), append([]string{"hook"}, tc.args...)...)
			require.NoError(t, err)

			var out hook.Output
			require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)

			assert.True(t, out.Continue)
			assert.Equal(t, tc.wantInjected, out.Injected())

			if !tc.wantInjected {
				assert.Empty(t, out.SystemMessage)
				return
			}

			require.NotNil(t, out.Metadata)
			assert.Contains(t, out.SystemMessage, "for go/gin")
			assert.Equal(t, "UserPromptSubmit", out.HookSpecificOutput.HookEventName)

			for _, want := range tc.wantContains {
				assert.Contains(t, out.HookSpecificOutput.AdditionalContext, want)
			}
		})
	}
}

func TestDetectCmd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	stdout, err := execute(t, "", "detect", f.project, "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Project:    go/gin")
	assert.Contains(t, stdout, "Languages:  go")

	stdout, err = execute(t, "", "detect", f.project, "--config", f.config, "-o", "json")
	require.NoError(t, err)

	var pc map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &pc))
	assert.Equal(t, []any{"gin"}, pc["frameworks"])

	stdout, err = execute(t, "", "detect", f.project, "--config", f.config, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "frameworks:")

	_, err = execute(t, "", "detect", f.project, "--config", f.config, "-o", "xml")
	require.ErrorIs(t, err, cli.ErrUnknownFormat)
}

func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	stdout, err := execute(t, "", "classify", "the", "login", "test", "is", "failing", "-o", "json")
	require.NoError(t, err)

	var in map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &in))
	assert.NotEmpty(t, in["category"])
	assert.NotEmpty(t, in["action"])

	_, err = execute(t, "", "classify")
	require.Error(t, err)
}

func TestSelectCmd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tcs := map[string]struct {
		err          error
		args         []string
		wantContains []string
		wantMissing  []string
	}{
		"ranks rules": {
			args: []string{"-p", "add a login endpoint", "--max-tokens", "3000"},
			wantContains: []string{
				"Project: go/gin",
				"base/code-quality.md",
				"frameworks/gin/best-practices.md",
				"always-load",
			},
			wantMissing: []string{"languages/python/coding-standards.md"},
		},
		"max rules": {
			args:        []string{"-p", "add a login endpoint", "--max-rules", "1"},
			wantMissing: []string{"2. "},
		},
		"fetch": {
			args:         []string{"-p", "add a login endpoint", "--fetch"},
			wantContains: []string{"# Project Rules (rulecat)", "Use route groups."},
		},
		"no prompt": {
			err: cli.ErrNoPrompt,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"select", f.project, "--config", f.config}, tc.args...)

			stdout, err := execute(t, "", args...)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)

			for _, want := range tc.wantContains {
				assert.Contains(t, stdout, want)
			}
			for _, missing := range tc.wantMissing {
				assert.NotContains(t, stdout, missing)
			}
		})
	}
}

func TestRulesCmd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tcs := map[string]struct {
		args         []string
		wantContains []string
		wantMissing  []string
		wantErr      bool
	}{
		"list": {
			args:         []string{"list"},
			wantContains: []string{"base/code-quality.md", "Python Coding Standards", "4 rules"},
		},
		"list by category": {
			args:         []string{"list", "--category", "language"},
			wantContains: []string{"languages/go/coding-standards.md", "2 rules"},
			wantMissing:  []string{"base/code-quality.md"},
		},
		"search": {
			args:         []string{"search", "gin"},
			wantContains: []string{"frameworks/gin/best-practices.md"},
		},
		"show": {
			args:         []string{"show", "base/code-quality.md", "-o", "yaml"},
			wantContains: []string{"path: base/code-quality.md", "alwaysLoad: true"},
		},
		"show fetch": {
			args:         []string{"show", "base/code-quality.md", "--fetch"},
			wantContains: []string{"# Code Quality (base/code-quality.md", "> Tip: small functions", "Keep functions short."},
		},
		"show unknown": {
			args:    []string{"show", "nope.md"},
			wantErr: true,
		},
		"show fetch missing content": {
			args:    []string{"show", "languages/python/coding-standards.md", "--fetch"},
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"rules"}, tc.args...)
			args = append(args, "--config", f.config)

			stdout, err := execute(t, "", args...)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			for _, want := range tc.wantContains {
				assert.Contains(t, stdout, want)
			}
			for _, missing := range tc.wantMissing {
				assert.NotContains(t, stdout, missing)
			}
		})
	}
}

func TestRulesCmd_StoreNotConfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	stdout, err := execute(t, "", "rules", "show", "languages/python/coding-standards.md", "--config", f.noStore)
	require.NoError(t, err)
	assert.Contains(t, stdout, "languages/python/coding-standards.md")

	_, err = execute(t, "", "rules", "show", "languages/python/coding-standards.md", "--fetch", "--config", f.noStore)
	require.ErrorIs(t, err, content.ErrStoreNotConfigured)

	stdout, err = execute(t, "", "config", "show", "--config", f.noStore)
	require.NoError(t, err)
	assert.Contains(t, stdout, "kind: http")
	assert.NotContains(t, stdout, "revision:")
}

func TestConfigCmd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rulecat", "config.yaml")

	stdout, err := execute(t, "", "config", "write", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", stdout)
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "config.v1beta1.json"))

	stdout, err = execute(t, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "maxRules: 5")
	assert.Contains(t, stdout, "kind: Configuration")

	stdout, err = execute(t, "", "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	assert.Contains(t, schema, "properties")
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	stdout, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "rulecat "), stdout)
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	return path
}
