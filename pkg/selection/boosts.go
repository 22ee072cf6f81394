package selection

import (
	"github.com/macropower/rulecat/pkg/intent"
)

// DefaultBoosts maps each intent category to the topics it boosts.
var DefaultBoosts = map[intent.Category][]string{
	intent.CategorySecurity:       {"security", "auth", "validation", "secrets"},
	intent.CategoryDebugging:      {"debugging", "testing", "logging", "error-handling"},
	intent.CategoryTesting:        {"testing", "tdd"},
	intent.CategoryPerformance:    {"performance", "caching", "profiling"},
	intent.CategoryDatabase:       {"database", "sql", "migrations"},
	intent.CategoryAPI:            {"api", "rest", "graphql", "validation"},
	intent.CategoryArchitecture:   {"architecture", "design", "modularity"},
	intent.CategoryRefactoring:    {"refactoring", "quality"},
	intent.CategoryDeployment:     {"deployment", "ci", "automation"},
	intent.CategoryDocumentation:  {"documentation"},
	intent.CategoryCodeReview:     {"code-review", "quality"},
	intent.CategoryImplementation: {"implementation", "architecture"},
}
