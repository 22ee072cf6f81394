package catalog

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
)

// Category groups rules by what they apply to.
type Category string

const (
	CategoryBase      Category = "base"
	CategoryLanguage  Category = "language"
	CategoryFramework Category = "framework"
	CategoryCloud     Category = "cloud"
	CategoryTesting   Category = "testing"
)

// Maturity levels a rule can apply to.
const (
	MaturityMVP           = "mvp"
	MaturityPreProduction = "pre-production"
	MaturityProduction    = "production"
)

var (
	AllCategories = []Category{
		CategoryBase,
		CategoryLanguage,
		CategoryFramework,
		CategoryCloud,
		CategoryTesting,
	}
	AllMaturityLevels = []string{
		MaturityMVP,
		MaturityPreProduction,
		MaturityProduction,
	}

	// DefaultTokens is the estimated size of a rule when the manifest omits it.
	DefaultTokens = map[Category]int{
		CategoryBase:      800,
		CategoryLanguage:  1000,
		CategoryFramework: 1200,
		CategoryCloud:     1400,
		CategoryTesting:   1000,
	}
)

// pathTopics derives topics from a rule's path when the manifest has none.
// Order is preserved in the output.
var pathTopics = []struct {
	topic    string
	keywords []string
}{
	{topic: "security", keywords: []string{"security", "auth", "jwt", "oauth"}},
	{topic: "testing", keywords: []string{"testing", "test", "pytest", "jest"}},
	{topic: "quality", keywords: []string{"quality", "standards", "style"}},
	{topic: "performance", keywords: []string{"performance", "optimization", "cache"}},
	{topic: "api", keywords: []string{"api", "rest", "graphql", "endpoint"}},
	{topic: "database", keywords: []string{"database", "db", "sql", "query"}},
	{topic: "deployment", keywords: []string{"deployment", "deploy", "ci", "cd"}},
}

// RuleInfo is the metadata record for one rule document.
type RuleInfo struct {
	// Path identifies the document in the content store. It is unique
	// within a catalog.
	Path string `json:"path" jsonschema:"title=Path"`
	// Title is a human-readable name.
	Title string `json:"title,omitempty" jsonschema:"title=Title"`
	// Category is one of base, language, framework, cloud or testing.
	Category Category `json:"category" jsonschema:"title=Category,enum=base,enum=language,enum=framework,enum=cloud,enum=testing"`
	// Language associates the rule with a detected language.
	Language string `json:"language,omitempty" jsonschema:"title=Language"`
	// Framework associates the rule with a detected framework.
	Framework string `json:"framework,omitempty" jsonschema:"title=Framework"`
	// CloudProvider associates the rule with a detected cloud provider.
	CloudProvider string `json:"cloudProvider,omitempty" jsonschema:"title=Cloud Provider"`
	// Topics the rule covers. Derived from the path when empty.
	Topics []string `json:"topics,omitempty" jsonschema:"title=Topics"`
	// Maturity lists the project maturity levels the rule applies to. Empty
	// means every level.
	Maturity []string `json:"maturity,omitempty" jsonschema:"title=Maturity"`
	// EstimatedTokens approximates the size of the document body.
	EstimatedTokens int `json:"estimatedTokens,omitempty" jsonschema:"title=Estimated Tokens,minimum=1"`
	// AlwaysLoad marks the rule as universally applicable.
	AlwaysLoad bool `json:"alwaysLoad,omitempty" jsonschema:"title=Always Load"`
}

// JSONSchemaExtend restricts maturity items to [AllMaturityLevels].
func (RuleInfo) JSONSchemaExtend(jss *jsonschema.Schema) {
	s, ok := jss.Properties.Get("maturity")
	if !ok || s.Items == nil {
		panic("maturity property not found in schema")
	}

	s.Items.Enum = make([]any, 0, len(AllMaturityLevels))
	for _, m := range AllMaturityLevels {
		s.Items.Enum = append(s.Items.Enum, m)
	}
}

// AppliesTo reports whether the rule applies to the given maturity level.
func (r RuleInfo) AppliesTo(maturity string) bool {
	return len(r.Maturity) == 0 || slices.Contains(r.Maturity, maturity)
}

// normalize fills in derived fields and validates the record.
func (r *RuleInfo) normalize() error {
	r.Path = strings.TrimPrefix(strings.TrimSpace(r.Path), "/")
	if r.Path == "" {
		return ErrEmptyPath
	}

	if !slices.Contains(AllCategories, r.Category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category)
	}

	for _, m := range r.Maturity {
		if !slices.Contains(AllMaturityLevels, m) {
			return fmt.Errorf("%w: %q", ErrUnknownMaturity, m)
		}
	}

	if r.EstimatedTokens < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTokens, r.EstimatedTokens)
	}

	if r.EstimatedTokens == 0 {
		r.EstimatedTokens = DefaultTokens[r.Category]
	}

	if r.Title == "" {
		r.Title = titleFromPath(r.Path)
	}

	if len(r.Topics) == 0 {
		r.Topics = TopicsFromPath(r.Path)
	}

	r.Topics = normalizeSet(r.Topics)

	return nil
}

// TopicsFromPath returns the topics whose keywords appear in the path.
func TopicsFromPath(p string) []string {
	words := strings.FieldsFunc(strings.ToLower(strings.TrimSuffix(p, path.Ext(p))), func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.'
	})

	var topics []string

	for _, pt := range pathTopics {
		for _, kw := range pt.keywords {
			if slices.Contains(words, kw) {
				topics = append(topics, pt.topic)

				break
			}
		}
	}

	return topics
}

func titleFromPath(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })

	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}

	return strings.Join(words, " ")
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}
