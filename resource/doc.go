// Package resource implements the bracket pattern over tasks: acquire,
// use, release, with release guaranteed exactly once per successful
// acquisition on every exit path, including panic and cancellation.
//
// Composition keeps the guarantee: [FlatMap] and [Both] release in
// reverse acquisition order, [ParBoth] acquires concurrently through an
// internal scope and rolls back a partial acquisition, and a release
// failure is reported alongside the failure that triggered the release,
// never instead of it.
package resource
