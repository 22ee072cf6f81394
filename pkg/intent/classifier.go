package intent

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"
)

var defaultClassifier = sync.OnceValue(func() *Classifier {
	c, err := NewClassifier()
	if err != nil {
		panic(fmt.Errorf("default intent tables: %w", err))
	}

	return c
})

// Intent is the inferred task profile of a request. It is immutable once
// returned.
type Intent struct {
	// Matches counts keyword and pattern hits per matched category.
	Matches  map[Category]int `json:"matches,omitempty"`
	Category Category         `json:"category"`
	Action   Action           `json:"action"`
	Urgency  Urgency          `json:"urgency"`
	Topics   []string         `json:"topics"`
}

// Unclear returns the intent used when nothing matched.
func Unclear() Intent {
	return Intent{
		Category: CategoryUnclear,
		Action:   ActionGeneral,
		Urgency:  UrgencyNormal,
		Topics:   []string{},
	}
}

// matcher counts how many of its keywords and patterns occur in a text.
type matcher struct {
	phrases  []string
	patterns []*regexp.Regexp
}

func newMatcher(keywords, patterns []string) (matcher, error) {
	m := matcher{
		phrases:  make([]string, 0, len(keywords)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for _, kw := range keywords {
		phrase := normalizeWords(kw)
		if phrase == "" {
			continue
		}

		m.phrases = append(m.phrases, " "+phrase+" ")
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return matcher{}, fmt.Errorf("compile pattern %q: %w", p, err)
		}

		m.patterns = append(m.patterns, re)
	}

	return m, nil
}

// count returns the number of keywords and patterns that match. words must
// come from [normalizeWords] padded with spaces; folded from [fold].
func (m matcher) count(words, folded string) int {
	n := 0

	for _, p := range m.phrases {
		if strings.Contains(words, p) {
			n++
		}
	}

	for _, re := range m.patterns {
		if re.MatchString(folded) {
			n++
		}
	}

	return n
}

type category struct {
	name    Category
	topics  []string
	matcher matcher
}

type action struct {
	action  Action
	matcher matcher
}

type urgency struct {
	urgency Urgency
	matcher matcher
}

// Classifier maps text to an [Intent]. It is safe for concurrent use.
type Classifier struct {
	categories []category
	actions    []action
	urgencies  []urgency
}

type classifierOptions struct {
	categories []CategorySpec
	actions    []ActionSpec
	urgencies  []UrgencySpec
}

// ClassifierOpt configures a [Classifier].
type ClassifierOpt func(*classifierOptions)

// WithCategories replaces [DefaultCategories].
func WithCategories(specs ...CategorySpec) ClassifierOpt {
	return func(o *classifierOptions) {
		o.categories = specs
	}
}

// WithActions replaces [DefaultActions].
func WithActions(specs ...ActionSpec) ClassifierOpt {
	return func(o *classifierOptions) {
		o.actions = specs
	}
}

// WithUrgencies replaces [DefaultUrgencies].
func WithUrgencies(specs ...UrgencySpec) ClassifierOpt {
	return func(o *classifierOptions) {
		o.urgencies = specs
	}
}

// NewClassifier compiles the classification tables.
func NewClassifier(opts ...ClassifierOpt) (*Classifier, error) {
	o := &classifierOptions{
		categories: DefaultCategories,
		actions:    DefaultActions,
		urgencies:  DefaultUrgencies,
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Classifier{}

	for _, def := range o.categories {
		m, err := newMatcher(def.Keywords, def.Patterns)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", def.Name, err)
		}

		c.categories = append(c.categories, category{
			name:    def.Name,
			topics:  def.Topics,
			matcher: m,
		})
	}

	for _, def := range o.actions {
		m, err := newMatcher(def.Keywords, nil)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", def.Action, err)
		}

		c.actions = append(c.actions, action{action: def.Action, matcher: m})
	}

	for _, def := range o.urgencies {
		m, err := newMatcher(def.Keywords, nil)
		if err != nil {
			return nil, fmt.Errorf("urgency %s: %w", def.Urgency, err)
		}

		c.urgencies = append(c.urgencies, urgency{urgency: def.Urgency, matcher: m})
	}

	return c, nil
}

// Default returns a [Classifier] using the default tables.
func Default() *Classifier {
	return defaultClassifier()
}

// Classify infers an [Intent] from text. The category with the most matches
// wins, ties going to the earlier table entry. Topics are the union of the
// topics of every matched category.
func (c *Classifier) Classify(text string) Intent {
	normalized := normalizeWords(text)
	if normalized == "" {
		return Unclear()
	}

	words := " " + normalized + " "
	folded := fold(text)

	in := Unclear()

	best := 0

	for _, cat := range c.categories {
		n := cat.matcher.count(words, folded)
		if n == 0 {
			continue
		}

		if in.Matches == nil {
			in.Matches = make(map[Category]int)
		}

		in.Matches[cat.name] += n
		in.Topics = append(in.Topics, cat.topics...)

		if n > best {
			best = n
			in.Category = cat.name
		}
	}

	slices.Sort(in.Topics)
	in.Topics = slices.Compact(in.Topics)

	for _, a := range c.actions {
		if a.matcher.count(words, folded) > 0 {
			in.Action = a.action

			break
		}
	}

	for _, u := range c.urgencies {
		if u.matcher.count(words, folded) > 0 {
			in.Urgency = u.urgency

			break
		}
	}

	return in
}

// Classify classifies text with the default tables.
func Classify(text string) Intent {
	return Default().Classify(text)
}

// fold case-folds text and collapses whitespace.
func fold(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// normalizeWords case-folds text and reduces it to space-separated words of
// letters and digits.
func normalizeWords(text string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
