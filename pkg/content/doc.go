// Package content resolves rule documents from a versioned content store.
//
// A [Fetcher] consults a [cache.Cache] first and falls back to a [Store],
// retrying transient failures a bounded number of times. Rules that cannot be
// resolved are dropped from the result rather than reported as errors.
package content
