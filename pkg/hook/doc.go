// Package hook implements the per-request entry point invoked by a host
// assistant before it handles a user message.
//
// A [Dispatcher] detects the project context, classifies the request,
// selects rules from a catalog, resolves their content and formats an
// injection block. Every failure degrades to an [Output] that injects
// nothing and lets the host continue.
package hook
