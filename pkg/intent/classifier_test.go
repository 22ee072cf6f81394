package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/intent"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		text     string
		category intent.Category
		action   intent.Action
		urgency  intent.Urgency
		topics   []string
	}{
		"empty": {
			text:     "",
			category: intent.CategoryUnclear,
			action:   intent.ActionGeneral,
			urgency:  intent.UrgencyNormal,
			topics:   []string{},
		},
		"whitespace only": {
			text:     " \n\t ",
			category: intent.CategoryUnclear,
			action:   intent.ActionGeneral,
			urgency:  intent.UrgencyNormal,
			topics:   []string{},
		},
		"no keywords": {
			text:     "hello there",
			category: intent.CategoryUnclear,
			action:   intent.ActionGeneral,
			urgency:  intent.UrgencyNormal,
			topics:   []string{},
		},
		"write tests": {
			text:     "Write tests for this function",
			category: intent.CategoryTesting,
			action:   intent.ActionTest,
			urgency:  intent.UrgencyNormal,
			topics:   []string{"implementation", "tdd", "testing"},
		},
		"security outranks api": {
			text:     "add JWT auth to the API",
			category: intent.CategorySecurity,
			action:   intent.ActionImplement,
			urgency:  intent.UrgencyNormal,
			topics:   []string{"api", "auth", "implementation", "rest", "security", "validation"},
		},
		"debugging urgent": {
			text:     "URGENT: the login endpoint crashes with an exception, please fix",
			category: intent.CategoryDebugging,
			action:   intent.ActionFix,
			urgency:  intent.UrgencyHigh,
			topics:   []string{"api", "debugging", "error-handling", "logging", "rest", "validation"},
		},
		"pattern match": {
			text:     "The cron job doesn't work anymore",
			category: intent.CategoryDebugging,
			action:   intent.ActionGeneral,
			urgency:  intent.UrgencyNormal,
			topics:   []string{"debugging", "error-handling", "logging"},
		},
		"refactor low priority": {
			text:     "Refactor the payment module, no rush",
			category: intent.CategoryRefactoring,
			action:   intent.ActionRefactor,
			urgency:  intent.UrgencyLow,
			topics:   []string{"quality", "refactoring"},
		},
		"explain": {
			text:     "Explain how the database migrations run",
			category: intent.CategoryDatabase,
			action:   intent.ActionExplain,
			urgency:  intent.UrgencyNormal,
			topics:   []string{"database", "migrations", "query", "sql"},
		},
		"whole words only": {
			text:     "my testimony about prices",
			category: intent.CategoryUnclear,
			action:   intent.ActionGeneral,
			urgency:  intent.UrgencyNormal,
			topics:   []string{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := intent.Classify(tc.text)

			assert.Equal(t, tc.category, got.Category)
			assert.Equal(t, tc.action, got.Action)
			assert.Equal(t, tc.urgency, got.Urgency)
			assert.Equal(t, tc.topics, got.Topics)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	text := "optimize the slow SQL query and add a cache"

	first := intent.Classify(text)
	for range 10 {
		assert.Equal(t, first, intent.Classify(text))
	}

	assert.Equal(t, 3, first.Matches[intent.CategoryPerformance])
	assert.Equal(t, 2, first.Matches[intent.CategoryDatabase])
	assert.Equal(t, intent.CategoryPerformance, first.Category)
}

func TestNewClassifier_CustomTables(t *testing.T) {
	t.Parallel()

	c, err := intent.NewClassifier(
		intent.WithCategories(
			intent.CategorySpec{Name: "A", Keywords: []string{"alpha"}, Topics: []string{"a"}},
			intent.CategorySpec{Name: "B", Keywords: []string{"beta"}, Patterns: []string{`gam+a`}, Topics: []string{"b"}},
		),
		intent.WithActions(intent.ActionSpec{Action: intent.ActionReview, Keywords: []string{"look at"}}),
		intent.WithUrgencies(),
	)
	require.NoError(t, err)

	got := c.Classify("Look at alpha beta gamma")

	assert.Equal(t, intent.Category("B"), got.Category)
	assert.Equal(t, []string{"a", "b"}, got.Topics)
	assert.Equal(t, intent.ActionReview, got.Action)
	assert.Equal(t, intent.UrgencyNormal, got.Urgency)

	tie := c.Classify("beta alpha")
	assert.Equal(t, intent.Category("A"), tie.Category)
}

func TestNewClassifier_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := intent.NewClassifier(intent.WithCategories(
		intent.CategorySpec{Name: "X", Patterns: []string{"("}},
	))
	require.ErrorContains(t, err, "category X")
}
