// Package selection ranks catalog rules against a detected project and an
// inferred intent, and picks a budget-bounded subset.
//
// Scores are a weighted sum of independent tiers. The default [Weights] keep
// each tier strictly dominant over the sum of every tier below it, so the
// ordering is: always-load, technology match, category boost, topic overlap,
// maturity applicability.
package selection
