// Package race runs one prompt against several backends at once and
// resolves on the first success.
//
// # Reading Guide
//
//   - race.go: Coordinator, Race, and the per-call loop
//   - errors.go: the aggregate Error returned when every backend fails
//   - metrics.go: Prometheus counters and histograms recorded per call
//
// # Lifecycle
//
// Coordinator.Start launches one goroutine per Participant and returns
// immediately. A single collector goroutine drains their outcomes:
//
//  1. The first successful outcome decides the race. Race.Winner unblocks
//     with its text while the losing calls keep running.
//  2. Once every call has settled, the settle hooks run in order with a copy
//     of all outcomes, then Race.Done is closed.
//
// Calls run on context.WithoutCancel of the caller's context, so a caller
// that stops waiting never aborts them. Coordinator.StragglerTimeout bounds
// how long they may run; a call cut off by it is recorded as a failure.
package race
