package intent

// Category is the primary task category of a request.
type Category string

const (
	CategorySecurity       Category = "SECURITY"
	CategoryDebugging      Category = "DEBUGGING"
	CategoryTesting        Category = "TESTING"
	CategoryPerformance    Category = "PERFORMANCE"
	CategoryDatabase       Category = "DATABASE"
	CategoryAPI            Category = "API"
	CategoryArchitecture   Category = "ARCHITECTURE"
	CategoryRefactoring    Category = "REFACTORING"
	CategoryDeployment     Category = "DEPLOYMENT"
	CategoryDocumentation  Category = "DOCUMENTATION"
	CategoryCodeReview     Category = "CODE_REVIEW"
	CategoryImplementation Category = "IMPLEMENTATION"
	CategoryUnclear        Category = "UNCLEAR"
)

// Action is what the request asks to be done.
type Action string

const (
	ActionImplement Action = "implement"
	ActionFix       Action = "fix"
	ActionRefactor  Action = "refactor"
	ActionReview    Action = "review"
	ActionTest      Action = "test"
	ActionExplain   Action = "explain"
	ActionOptimize  Action = "optimize"
	ActionDeploy    Action = "deploy"
	ActionDocument  Action = "document"
	ActionGeneral   Action = "general"
)

// Urgency is how pressing the request is.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

// CategorySpec declares how a category is recognized and which topics it
// contributes. Keywords match whole words or phrases; Patterns are RE2
// expressions matched against the case-folded text.
type CategorySpec struct {
	Name     Category `json:"name"`
	Keywords []string `json:"keywords,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
	Topics   []string `json:"topics,omitempty"`
}

// ActionSpec declares the keywords implying an action.
type ActionSpec struct {
	Action   Action   `json:"action"`
	Keywords []string `json:"keywords"`
}

// UrgencySpec declares the keywords implying an urgency.
type UrgencySpec struct {
	Urgency  Urgency  `json:"urgency"`
	Keywords []string `json:"keywords"`
}

// DefaultCategories is evaluated in order; earlier entries win ties.
var DefaultCategories = []CategorySpec{
	{
		Name: CategorySecurity,
		Keywords: []string{
			"security", "secure", "insecure", "auth", "authentication", "authorization",
			"jwt", "oauth", "password", "passwords", "encryption", "encrypt", "xss", "csrf",
			"injection", "vulnerability", "vulnerabilities", "secret", "secrets", "cve",
			"sanitize", "permissions", "rbac",
		},
		Patterns: []string{`\bowasp\b`, `\bsql\s+injection\b`},
		Topics:   []string{"security", "auth", "validation"},
	},
	{
		Name: CategoryDebugging,
		Keywords: []string{
			"bug", "bugs", "debug", "debugging", "error", "errors", "exception", "crash",
			"crashes", "broken", "failing", "fails", "traceback", "stack trace", "not working",
			"panic", "segfault",
		},
		Patterns: []string{`doesn'?t work`, `\bwhy (is|does)\b.*\b(fail|break|crash)`},
		Topics:   []string{"debugging", "error-handling", "logging"},
	},
	{
		Name: CategoryTesting,
		Keywords: []string{
			"test", "tests", "testing", "unit test", "integration test", "e2e", "coverage",
			"mock", "mocks", "pytest", "jest", "tdd", "assertion", "fixture", "fixtures",
		},
		Topics: []string{"testing", "tdd"},
	},
	{
		Name: CategoryPerformance,
		Keywords: []string{
			"performance", "slow", "optimize", "optimization", "speed", "latency", "memory",
			"cpu", "cache", "caching", "profiling", "bottleneck", "faster", "throughput",
		},
		Topics: []string{"performance", "caching", "profiling"},
	},
	{
		Name: CategoryDatabase,
		Keywords: []string{
			"database", "db", "sql", "query", "queries", "migration", "migrations", "schema",
			"index", "postgres", "postgresql", "mysql", "sqlite", "mongodb", "orm", "transaction",
		},
		Topics: []string{"database", "sql", "migrations", "query"},
	},
	{
		Name: CategoryAPI,
		Keywords: []string{
			"api", "endpoint", "endpoints", "rest", "graphql", "grpc", "route", "routes",
			"request", "response", "http", "webhook", "openapi",
		},
		Topics: []string{"api", "rest", "validation"},
	},
	{
		Name: CategoryArchitecture,
		Keywords: []string{
			"architecture", "design", "pattern", "patterns", "structure", "microservice",
			"microservices", "modular", "scalability", "system design", "layers", "monolith",
		},
		Topics: []string{"architecture", "design"},
	},
	{
		Name: CategoryRefactoring,
		Keywords: []string{
			"refactor", "refactoring", "clean up", "cleanup", "restructure", "simplify",
			"rename", "extract", "duplication", "technical debt", "tech debt",
		},
		Topics: []string{"refactoring", "quality"},
	},
	{
		Name: CategoryDeployment,
		Keywords: []string{
			"deploy", "deployment", "release", "ci", "cd", "pipeline", "docker", "kubernetes",
			"k8s", "container", "hosting", "terraform", "helm",
		},
		Topics: []string{"deployment", "ci", "automation"},
	},
	{
		Name: CategoryDocumentation,
		Keywords: []string{
			"document", "documentation", "docs", "readme", "docstring", "docstrings",
			"comment", "comments", "changelog",
		},
		Topics: []string{"documentation"},
	},
	{
		Name: CategoryCodeReview,
		Keywords: []string{
			"review", "code review", "pr", "pull request", "feedback", "audit", "best practice",
			"best practices",
		},
		Patterns: []string{`\bcheck (my|this|the) code\b`},
		Topics:   []string{"code-review", "quality"},
	},
	{
		Name: CategoryImplementation,
		Keywords: []string{
			"implement", "build", "create", "add", "write", "make", "feature", "develop",
			"generate", "scaffold",
		},
		Topics: []string{"implementation"},
	},
}

// DefaultActions is evaluated in order; the first match wins.
var DefaultActions = []ActionSpec{
	{Action: ActionFix, Keywords: []string{"fix", "bug", "debug", "broken", "error", "resolve", "repair"}},
	{Action: ActionRefactor, Keywords: []string{"refactor", "clean up", "cleanup", "restructure", "simplify"}},
	{Action: ActionTest, Keywords: []string{"test", "tests", "testing", "coverage"}},
	{Action: ActionReview, Keywords: []string{"review", "audit", "check"}},
	{Action: ActionOptimize, Keywords: []string{"optimize", "speed up", "faster", "performance"}},
	{Action: ActionDeploy, Keywords: []string{"deploy", "release", "ship"}},
	{Action: ActionDocument, Keywords: []string{"document", "docs", "readme", "docstring"}},
	{Action: ActionExplain, Keywords: []string{"explain", "what is", "how does", "why", "understand"}},
	{Action: ActionImplement, Keywords: []string{"implement", "build", "create", "add", "write", "make", "develop"}},
}

// DefaultUrgencies is evaluated in order; the first match wins.
var DefaultUrgencies = []UrgencySpec{
	{Urgency: UrgencyHigh, Keywords: []string{
		"urgent", "urgently", "asap", "immediately", "critical", "emergency", "hotfix",
		"blocker", "production down", "outage",
	}},
	{Urgency: UrgencyLow, Keywords: []string{
		"when you have time", "eventually", "someday", "no rush", "nice to have", "low priority",
	}},
}
