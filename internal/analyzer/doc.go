// Package analyzer answers navigation queries against document snapshots.
//
// Analyzer is the seam for a semantic analysis service: the session layer
// hands it a file name, the snapshot to query, and a byte offset. Lexical
// is the built-in implementation. It knows nothing about any language
// beyond identifiers, a handful of declaration keywords, quotes and line
// comments, which is enough for definition, rename, completion and symbol
// search over a single file.
//
// Lexical keeps one index per file and brings it up to date with
// Snapshot.GetChangeRange: only the lines covering the changed span are
// rescanned. Per-line tokens are also cached in each leaf's annotation
// slot, so lines that survive an edit are never tokenized twice. A reload
// discontinuity forces a full rescan.
package analyzer
