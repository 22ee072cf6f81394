package selection_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/selection"
)

func goProject() detect.ProjectContext {
	pc := detect.EmptyContext("/src/api")
	pc.Languages = []string{"go"}
	pc.Frameworks = []string{"gin"}
	pc.Maturity = catalog.MaturityProduction

	return pc
}

func TestSelect_DefaultCatalog(t *testing.T) {
	t.Parallel()

	p := selection.Params{
		Project:   goProject(),
		Intent:    intent.Classify("add request validation to the gin handlers"),
		MaxRules:  5,
		MaxTokens: 5000,
	}
	p.Category = p.Intent.Category

	got := selection.Paths(selection.Select(catalog.Default().List(), p))

	want := []string{
		"base/security-principles.md",
		"base/code-quality.md",
		"base/git-workflow.md",
		"frameworks/gin/best-practices.md",
		"languages/go/coding-standards.md",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_TestingRuleFirst(t *testing.T) {
	t.Parallel()

	rules := catalog.MustNew(
		catalog.RuleInfo{Path: "base/architecture.md", Category: catalog.CategoryBase, Topics: []string{"architecture"}},
		catalog.RuleInfo{Path: "base/testing.md", Category: catalog.CategoryBase, Topics: []string{"testing", "debugging"}},
	).List()

	in := intent.Classify("write tests for this function")

	got := selection.Select(rules, selection.Params{
		Project:   detect.EmptyContext("."),
		Intent:    in,
		Category:  intent.CategoryDebugging,
		MaxRules:  2,
		MaxTokens: 10_000,
	})

	require.Len(t, got, 2)
	assert.Equal(t, "base/testing.md", got[0].Rule.Path)
	assert.Contains(t, got[0].Reasons, "boost:DEBUGGING")
}

func TestSelect_MaxRulesZero(t *testing.T) {
	t.Parallel()

	got := selection.Select(catalog.Default().List(), selection.Params{
		Project:   goProject(),
		Intent:    intent.Classify("anything"),
		MaxRules:  0,
		MaxTokens: 100_000,
	})

	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSelect_EmptyCatalog(t *testing.T) {
	t.Parallel()

	assert.Empty(t, selection.Select(nil, selection.Params{MaxRules: 5, MaxTokens: 5000}))
}

func TestSelect_FirstItemOverflow(t *testing.T) {
	t.Parallel()

	rules := catalog.MustNew(
		catalog.RuleInfo{Path: "big.md", Category: catalog.CategoryBase, AlwaysLoad: true, EstimatedTokens: 9000},
		catalog.RuleInfo{Path: "small.md", Category: catalog.CategoryBase, EstimatedTokens: 10},
	).List()

	got := selection.Select(rules, selection.Params{MaxRules: 5, MaxTokens: 100})

	require.Len(t, got, 1)
	assert.Equal(t, "big.md", got[0].Rule.Path)
}

func TestSelect_StopsAtFirstOverflow(t *testing.T) {
	t.Parallel()

	rules := catalog.MustNew(
		catalog.RuleInfo{Path: "a.md", Category: catalog.CategoryBase, AlwaysLoad: true, EstimatedTokens: 400},
		catalog.RuleInfo{Path: "b.md", Category: catalog.CategoryLanguage, Language: "go", EstimatedTokens: 700},
		catalog.RuleInfo{Path: "c.md", Category: catalog.CategoryBase, EstimatedTokens: 100},
	).List()

	got := selection.Select(rules, selection.Params{
		Project:   goProject(),
		MaxRules:  5,
		MaxTokens: 1000,
	})

	assert.Equal(t, []string{"a.md"}, selection.Paths(got))
}

func TestSelect_MinScore(t *testing.T) {
	t.Parallel()

	rules := catalog.MustNew(
		catalog.RuleInfo{Path: "go.md", Category: catalog.CategoryLanguage, Language: "go"},
		catalog.RuleInfo{Path: "rust.md", Category: catalog.CategoryLanguage, Language: "rust"},
	).List()

	got := selection.Select(rules, selection.Params{
		Project:   goProject(),
		MaxRules:  5,
		MaxTokens: 10_000,
		MinScore:  2,
	})

	assert.Equal(t, []string{"go.md"}, selection.Paths(got))
}

func TestScore_TierDominance(t *testing.T) {
	t.Parallel()

	manyTopics := make([]string, 0, 120)
	for i := range 120 {
		manyTopics = append(manyTopics, fmt.Sprintf("t%03d", i))
	}

	p := selection.Params{
		Project:  goProject(),
		Intent:   intent.Intent{Topics: slices.Concat(manyTopics, []string{"security"})},
		Category: intent.CategorySecurity,
	}

	lower := selection.Score(catalog.RuleInfo{
		Path:     "lower.md",
		Topics:   slices.Concat(manyTopics, []string{"security"}),
		Maturity: []string{catalog.MaturityProduction},
	}, p)

	tech := selection.Score(catalog.RuleInfo{Path: "tech.md", Language: "go", Maturity: []string{catalog.MaturityMVP}}, p)
	always := selection.Score(catalog.RuleInfo{Path: "always.md", AlwaysLoad: true, Maturity: []string{catalog.MaturityMVP}}, p)
	boost := selection.Score(catalog.RuleInfo{Path: "boost.md", Topics: []string{"auth"}, Maturity: []string{catalog.MaturityMVP}}, p)
	topic := selection.Score(catalog.RuleInfo{Path: "topic.md", Topics: []string{"t000"}, Maturity: []string{catalog.MaturityMVP}}, p)
	maturity := selection.Score(catalog.RuleInfo{Path: "maturity.md"}, p)

	assert.Greater(t, always.Score, tech.Score+lower.Score)
	assert.Greater(t, tech.Score, lower.Score)
	assert.Greater(t, boost.Score, topic.Score+maturity.Score)
	assert.Greater(t, topic.Score, maturity.Score)
	assert.Equal(t, 1, maturity.Score)
}

func TestWeights_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, selection.DefaultWeights().Validate())

	tcs := map[string]func(w *selection.Weights){
		"zero":                 func(w *selection.Weights) { w.Maturity = 0 },
		"topic below maturity": func(w *selection.Weights) { w.Maturity = 10 },
		"boost below topics":   func(w *selection.Weights) { w.CategoryBoost = 990 },
		"cloud below boost":    func(w *selection.Weights) { w.Cloud = 1500 },
		"always below tech":    func(w *selection.Weights) { w.AlwaysLoad = 20_000 },
	}

	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			w := selection.DefaultWeights()
			mutate(&w)

			require.ErrorIs(t, w.Validate(), selection.ErrInvalidWeights)
		})
	}
}

func randomCatalog(r *rand.Rand) []catalog.RuleInfo {
	topics := []string{"security", "testing", "debugging", "api", "database", "performance", "quality"}
	langs := []string{"", "", "go", "python", "rust"}

	n := r.IntN(30)
	rules := make([]catalog.RuleInfo, 0, n)

	for i := range n {
		var ts []string
		for _, t := range topics {
			if r.IntN(3) == 0 {
				ts = append(ts, t)
			}
		}

		rules = append(rules, catalog.RuleInfo{
			Path:            fmt.Sprintf("rules/%02d.md", i),
			Category:        catalog.CategoryBase,
			Language:        langs[r.IntN(len(langs))],
			Topics:          ts,
			AlwaysLoad:      r.IntN(10) == 0,
			EstimatedTokens: 1 + r.IntN(2000),
		})
	}

	return catalog.MustNew(rules...).List()
}

func TestSelect_Properties(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // Deterministic test data.

	categories := []intent.Category{
		"", intent.CategoryDebugging, intent.CategorySecurity, intent.CategoryTesting,
	}

	for i := range 200 {
		rules := randomCatalog(r)
		p := selection.Params{
			Project:   goProject(),
			Intent:    intent.Intent{Topics: []string{"testing", "api"}},
			Category:  categories[r.IntN(len(categories))],
			MaxRules:  r.IntN(8),
			MaxTokens: r.IntN(6000),
		}

		got := selection.Select(rules, p)

		assert.LessOrEqual(t, len(got), p.MaxRules, "iteration %d", i)

		if len(got) > 1 {
			assert.LessOrEqual(t, selection.TotalTokens(got), p.MaxTokens, "iteration %d", i)
		}

		assert.Equal(t, got, selection.Select(rules, p), "iteration %d: not deterministic", i)
	}
}

func TestRank_CategoryBoostMonotonic(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(3, 4)) //nolint:gosec // Deterministic test data.

	for i := range 200 {
		rules := randomCatalog(r)
		base := selection.Params{
			Project: goProject(),
			Intent:  intent.Intent{Topics: []string{"api", "quality"}},
		}
		boosted := base
		boosted.Category = intent.CategoryDebugging

		without := selection.Paths(selection.Rank(rules, base))
		with := selection.Paths(selection.Rank(rules, boosted))

		for _, rule := range rules {
			if !slices.ContainsFunc(rule.Topics, func(t string) bool {
				return slices.Contains(selection.DefaultBoosts[intent.CategoryDebugging], t)
			}) {
				continue
			}

			assert.LessOrEqual(t,
				slices.Index(with, rule.Path),
				slices.Index(without, rule.Path),
				"iteration %d: %s ranked worse with boost", i, rule.Path,
			)
		}
	}
}

func TestRank_NoCategoryIsNoop(t *testing.T) {
	t.Parallel()

	rules := catalog.Default().List()
	p := selection.Params{Project: goProject(), Intent: intent.Classify("optimize the query")}

	withEmptyBoosts := p
	withEmptyBoosts.Boosts = map[intent.Category][]string{}
	withEmptyBoosts.Category = intent.CategoryPerformance

	assert.Equal(t, selection.Paths(selection.Rank(rules, p)), selection.Paths(selection.Rank(rules, withEmptyBoosts)))
}
