// Package versioncache turns a stream of edits into a totally ordered,
// queryable history of immutable document snapshots.
//
// A ScriptVersionCache owns the history of one open document. Every Edit
// produces a new lineindex.LineIndex by path copying and publishes it as a
// Snapshot whose version is one greater than the previous one. Snapshots are
// immutable and may be held and queried from any goroutine for as long as
// the caller likes; later edits never affect them.
//
// The cache remembers the TextChange behind each recent version so that the
// net ChangeRange between two versions can be computed by composing them.
// This is what an incremental analyzer needs to rescan only the region that
// actually changed.
//
// To keep edit cost and diff cost bounded over long sessions, the cache
// consolidates: once the pending change list grows past its count or length
// threshold, the latest tree is rebuilt balanced and the pending list is
// cleared. Reload replaces the content wholesale and starts a new history;
// change ranges across a reload are reported as ErrReloadDiscontinuity.
//
// The cache itself is not safe for concurrent mutation. Callers serialize
// edits; snapshots need no synchronization.
package versioncache
