// Package relation implements the file-backed relation engine.
//
// # Overview
//
// A [File] is a handle on one relation file. It holds only the resolved path:
// every operation reads the whole file, applies its change in memory, and
// persists before returning. Nothing is cached between calls, so the file on
// disk is always the source of truth.
//
// # Positional Identifiers
//
// Column "#" holds a 1-based identifier equal to the row's position. Every
// full rewrite renumbers the rows, so identifiers stay contiguous after any
// deletion and the invariant row[i].id == i+1 holds whenever a call returns.
//
// # Persistence
//
// [File.AddRow] appends a single line. Every other mutation rewrites the whole
// file through a temporary file renamed over the original, unless
// [Options.InPlace] is set. There is no locking: callers sharing a path across
// handles or processes must serialize themselves.
package relation
