// Package conformance provides a standardised test suite for implementations
// of engine.Engine: a factory function builds a fresh engine rooted at a
// temp directory, and RunEngineTests exercises it against the
// Put/Get/MultiGet/OpenReadOnly contract every Snapshot Engine adapter must
// satisfy.
//
// Example usage:
//
//	factory := func() engine.Engine { return snapshot.New(nil) }
//	conformance.RunEngineTests(t, "snapshot", factory)
package conformance
