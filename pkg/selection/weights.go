package selection

import (
	"errors"
	"fmt"
)

var ErrInvalidWeights = errors.New("invalid weights")

// Weights are the per-tier score contributions.
type Weights struct {
	AlwaysLoad    int `json:"alwaysLoad" jsonschema:"title=Always Load,minimum=1"`
	Language      int `json:"language" jsonschema:"title=Language Match,minimum=1"`
	Framework     int `json:"framework" jsonschema:"title=Framework Match,minimum=1"`
	Cloud         int `json:"cloud" jsonschema:"title=Cloud Provider Match,minimum=1"`
	CategoryBoost int `json:"categoryBoost" jsonschema:"title=Category Boost,minimum=1"`
	Topic         int `json:"topic" jsonschema:"title=Topic Overlap (per topic),minimum=1"`
	// MaxTopics caps how many shared topics are counted.
	MaxTopics int `json:"maxTopics" jsonschema:"title=Max Counted Topics,minimum=1"`
	Maturity  int `json:"maturity" jsonschema:"title=Maturity Applicability,minimum=1"`
}

// DefaultWeights returns the default [Weights].
func DefaultWeights() Weights {
	return Weights{
		AlwaysLoad:    1_000_000,
		Language:      10_000,
		Framework:     10_000,
		Cloud:         7_500,
		CategoryBoost: 1_000,
		Topic:         10,
		MaxTopics:     99,
		Maturity:      1,
	}
}

// Validate checks that every weight is positive and that each tier outweighs
// the maximum attainable sum of all lower tiers.
func (w Weights) Validate() error {
	for name, v := range map[string]int{
		"alwaysLoad":    w.AlwaysLoad,
		"language":      w.Language,
		"framework":     w.Framework,
		"cloud":         w.Cloud,
		"categoryBoost": w.CategoryBoost,
		"topic":         w.Topic,
		"maxTopics":     w.MaxTopics,
		"maturity":      w.Maturity,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidWeights, name, v)
		}
	}

	below := w.Maturity
	if w.Topic <= below {
		return fmt.Errorf("%w: topic (%d) must exceed maturity (%d)", ErrInvalidWeights, w.Topic, below)
	}

	below += w.Topic * w.MaxTopics
	if w.CategoryBoost <= below {
		return fmt.Errorf("%w: categoryBoost (%d) must exceed %d", ErrInvalidWeights, w.CategoryBoost, below)
	}

	below += w.CategoryBoost
	if tech := min(w.Language, w.Framework, w.Cloud); tech <= below {
		return fmt.Errorf("%w: technology weights (%d) must exceed %d", ErrInvalidWeights, tech, below)
	}

	below += w.Language + w.Framework + w.Cloud
	if w.AlwaysLoad <= below {
		return fmt.Errorf("%w: alwaysLoad (%d) must exceed %d", ErrInvalidWeights, w.AlwaysLoad, below)
	}

	return nil
}
