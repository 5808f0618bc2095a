// Package selftest runs plugin-declared self-tests with crash isolation.
//
// Each test runs on its own goroutine behind a recover boundary. A test that returns
// nil is successful, one that returns an error has failed, and one that panics or
// exits its goroutine is crashed. Nothing a test does reaches the caller.
//
// Reports list outcomes in declaration order and are written with a single Write
// call, so reports of plugins tested concurrently never interleave.
//
// There is no timeout: a test that never returns blocks its suite.
package selftest
