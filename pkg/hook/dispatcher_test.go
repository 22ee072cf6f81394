package hook_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/cache"
	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/metrics"
)

const goModGin = `module example.com/api

go 1.25

require github.com/gin-gonic/gin v1.10.0
`

func testCatalog() *catalog.Catalog {
	return catalog.MustNew(
		catalog.RuleInfo{
			Path:            "base/code-quality.md",
			Title:           "Code Quality",
			Category:        catalog.CategoryBase,
			AlwaysLoad:      true,
			EstimatedTokens: 800,
		},
		catalog.RuleInfo{
			Path:            "languages/go/coding-standards.md",
			Title:           "Go Coding Standards",
			Category:        catalog.CategoryLanguage,
			Language:        "go",
			EstimatedTokens: 1200,
		},
		catalog.RuleInfo{
			Path:            "frameworks/gin/best-practices.md",
			Title:           "Gin Best Practices",
			Category:        catalog.CategoryFramework,
			Framework:       "gin",
			EstimatedTokens: 1000,
		},
		catalog.RuleInfo{
			Path:            "languages/python/coding-standards.md",
			Title:           "Python Coding Standards",
			Category:        catalog.CategoryLanguage,
			Language:        "python",
			EstimatedTokens: 1000,
		},
	)
}

func ginProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goModGin), 0o600))

	return dir
}

type stubFetcher struct {
	fetch func(infos []catalog.RuleInfo) []content.Rule
	calls int
	mu    sync.Mutex
}

func (s *stubFetcher) Fetch(_ context.Context, infos []catalog.RuleInfo) []content.Rule {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	return s.fetch(infos)
}

func (s *stubFetcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func resolveAll(infos []catalog.RuleInfo) []content.Rule {
	rules := make([]content.Rule, 0, len(infos))
	for _, info := range infos {
		body := fmt.Sprintf("# %s\n\n> Tip: read %s first\n\nBody of %s.\n", info.Title, info.Path, info.Path)
		rules = append(rules, content.NewRule(info, body, time.Now()))
	}

	return rules
}

type observed struct {
	outcomes []string
	stages   []string
	mu       sync.Mutex
}

func (o *observed) ObserveRequest(outcome string, _, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.outcomes = append(o.outcomes, outcome)
}

func (o *observed) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stages = append(o.stages, stage)
}

func newDispatcher(f hook.Fetcher, opts ...hook.DispatcherOpt) *hook.Dispatcher {
	opts = append([]hook.DispatcherOpt{
		hook.WithCatalog(testCatalog()),
		hook.WithLimits(3, 5000),
		hook.WithRequestIDs(func() string { return "req-1" }),
	}, opts...)

	return hook.NewDispatcher(f, opts...)
}

func TestDispatcher_Injects(t *testing.T) {
	t.Parallel()

	obs := &observed{}
	f := &stubFetcher{fetch: resolveAll}
	d := newDispatcher(f, hook.WithObserver(obs))

	out := d.Handle(t.Context(), hook.Input{
		CWD:    ginProject(t),
		Prompt: "add an endpoint to the gin router",
	})

	require.True(t, out.Continue)
	require.True(t, out.Injected())
	assert.Equal(t, "rulecat: 3 rules (~3,000 tokens) for go/gin", out.SystemMessage)
	assert.Equal(t, hook.DefaultEventName, out.HookSpecificOutput.HookEventName)

	block := out.HookSpecificOutput.AdditionalContext
	assert.True(t, strings.HasPrefix(block, hook.InjectionHeader))
	assert.Contains(t, block, "**Project:** go/gin")
	assert.Contains(t, block, "## Go Coding Standards")
	assert.Contains(t, block, "> Tip: read frameworks/gin/best-practices.md first")
	assert.NotContains(t, block, "Python")

	meta := out.Metadata
	require.NotNil(t, meta)
	assert.Equal(t, "req-1", meta.RequestID)
	assert.Equal(t, []string{"go"}, meta.Context.Languages)
	assert.Equal(t, []string{
		"base/code-quality.md",
		"languages/go/coding-standards.md",
		"frameworks/gin/best-practices.md",
	}, meta.Resolved)
	require.Len(t, meta.Matched, 3)
	assert.Contains(t, meta.Matched[0].Reasons, "always-load")
	assert.Equal(t, 3000, meta.EstimatedTokens)

	for _, stage := range []string{hook.StageDetect, hook.StageClassify, hook.StageSelect, hook.StageFetch, hook.StageFormat, hook.StageTotal} {
		assert.Contains(t, meta.Timings, stage)
	}

	assert.Equal(t, []string{metrics.OutcomeInjected}, obs.outcomes)
	assert.Equal(t, []string{hook.StageDetect, hook.StageClassify, hook.StageSelect, hook.StageFetch, hook.StageFormat}, obs.stages)
}

func TestDispatcher_NoInjection(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in        hook.Input
		opts      []hook.DispatcherOpt
		fetch     func([]catalog.RuleInfo) []content.Rule
		wantFetch bool
	}{
		"disabled": {
			in:    hook.Input{Prompt: "refactor the handlers"},
			opts:  []hook.DispatcherOpt{hook.WithAutoLoad(false)},
			fetch: resolveAll,
		},
		"empty prompt": {
			in:    hook.Input{Prompt: "   "},
			fetch: resolveAll,
		},
		"assistant messages only": {
			in: hook.Input{Messages: []hook.Message{
				{Role: "assistant", Content: "How can I help?"},
			}},
			fetch: resolveAll,
		},
		"nothing selected": {
			in:    hook.Input{Prompt: "refactor the handlers"},
			opts:  []hook.DispatcherOpt{hook.WithLimits(0, 5000)},
			fetch: resolveAll,
		},
		"nothing resolved": {
			in:        hook.Input{Prompt: "refactor the handlers"},
			fetch:     func([]catalog.RuleInfo) []content.Rule { return nil },
			wantFetch: true,
		},
		"empty catalog": {
			in:    hook.Input{Prompt: "refactor the handlers"},
			opts:  []hook.DispatcherOpt{hook.WithCatalog(catalog.MustNew())},
			fetch: resolveAll,
		},
		"fetcher panics": {
			in: hook.Input{Prompt: "refactor the handlers"},
			fetch: func([]catalog.RuleInfo) []content.Rule {
				panic("boom")
			},
			wantFetch: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := &stubFetcher{fetch: tc.fetch}
			tc.in.CWD = ginProject(t)

			out := newDispatcher(f, tc.opts...).Handle(t.Context(), tc.in)

			assert.Equal(t, hook.NoInjection(), out)
			assert.True(t, out.Continue)
			if tc.wantFetch {
				assert.Equal(t, 1, f.Calls())
			} else {
				assert.Zero(t, f.Calls())
			}
		})
	}
}

func TestDispatcher_PanicIsObservedAsFailure(t *testing.T) {
	t.Parallel()

	obs := &observed{}
	f := &stubFetcher{fetch: func([]catalog.RuleInfo) []content.Rule {
		panic(fmt.Errorf("fetch %d rules", 3))
	}}

	out := newDispatcher(f, hook.WithObserver(obs)).Handle(t.Context(), hook.Input{
		CWD:    ginProject(t),
		Prompt: "fix the failing build",
	})

	assert.True(t, out.Continue)
	assert.False(t, out.Injected())
	assert.Equal(t, []string{metrics.OutcomeFailed}, obs.outcomes)
}

type slowStore struct {
	slow string
}

func (s slowStore) Get(ctx context.Context, _, path string) ([]byte, error) {
	if path == s.slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	return []byte("# " + path + "\n"), nil
}

func TestDispatcher_FetchTimeout(t *testing.T) {
	t.Parallel()

	fetcher := content.NewFetcher(
		slowStore{slow: "languages/go/coding-standards.md"},
		cache.New[content.Rule](time.Minute),
		content.WithTimeout(20*time.Millisecond),
		content.WithAttempts(1),
	)

	out := newDispatcher(fetcher).Handle(t.Context(), hook.Input{
		CWD: ginProject(t),
		Messages: []hook.Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "Hi!"},
			{Role: "user", Content: "add an endpoint to the gin router"},
		},
	})

	require.True(t, out.Continue)
	require.True(t, out.Injected())
	require.NotNil(t, out.Metadata)
	assert.Len(t, out.Metadata.Matched, 3)
	assert.Equal(t, []string{
		"base/code-quality.md",
		"frameworks/gin/best-practices.md",
	}, out.Metadata.Resolved)
	assert.Contains(t, out.HookSpecificOutput.AdditionalContext, "`languages/go/coding-standards.md`, ~1,200 tokens, unavailable")
	assert.Equal(t, "rulecat: 2 rules (~1,800 tokens) for go/gin", out.SystemMessage)
}
