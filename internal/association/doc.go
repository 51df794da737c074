// Package association binds marker files to recordings through a two-phase
// operator gesture.
//
// The operator selects one side of the pairing and invokes associate; the
// engine keeps that selection as the anchor and waits for the other side.
// The second associate validates the pick against the anchor and binds both
// sides in one step. Guard failures ask the prompter whether to retry the
// pick or cancel the gesture.
//
// The engine is not safe for concurrent use. The session serializes every
// call with background load application.
package association
