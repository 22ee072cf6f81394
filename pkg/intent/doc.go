// Package intent maps free-text requests to a task category, topics, an
// action and an urgency using declarative keyword and pattern tables.
package intent
