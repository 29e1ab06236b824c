// Package scope narrows list queries to the caller's visibility boundary.
//
// The pattern is fixed: resolve the event role, resolve the leadership role,
// find the boundary unit on the caller's ancestor path, and emit a
// fixed-depth descendant predicate. Stores apply the predicate; they never
// re-derive authority. Explicit stamm/ring/bund query-parameter filters
// compose with the resolved scope through Narrow.
package scope
