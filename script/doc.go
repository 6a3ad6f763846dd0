// Package script provides a session-oriented façade over embeddable
// scripting engines.
//
// A [Manager] hands units of source text to an [Engine], executes them with a
// fixed set of injected globals, and normalizes every outcome into a
// [Result]. The Manager never returns errors or panics: compilation failures,
// runtime failures, missing files and missing sessions are all reported
// through Result.
//
// # Sessions
//
// The Manager holds at most one evaluation context ([State]). A successful
// [Manager.RunFresh] replaces it, a successful [Manager.Continue] rebinds it,
// and [Manager.Reset] discards it. Failed runs never change it, so bindings
// made by the last successful unit stay visible to the next continuation.
//
// # Globals
//
// Every executed unit sees three bindings:
//
//   - Assets: the host's asset manager ([assets.Manager])
//   - Logger: the host's [Logger]
//   - Console: a [Console] that forwards WriteLine/Write to Logger at info level
//
// # Concurrency
//
// A Manager is owned by a single caller. RunFresh, RunFromFile, Continue and
// Reset must be serialized externally, for example one Manager per logical
// session guarded by a mutex (see package sessions).
package script
