// Package engine manages open documents.
//
// A Document couples a file name with the versioncache.ScriptVersionCache
// that holds its text. It is the entry point the session layer uses for
// every buffer operation:
//
//	doc, err := engine.Open("main.js")
//	snap, err := doc.Edit(10, 3, "foo")
//	text, err := snap.GetText(0, snap.GetLength())
//
// Reloads come in three forms. Reload replaces the text inside the same
// history. ReloadFromFile reads the file first and leaves the document
// untouched if that fails. ReloadNoHistory discards the cache entirely and
// starts a fresh one whose versions continue after the old ones.
//
// Document methods are safe for concurrent use. Snapshots returned by a
// Document are immutable.
package engine
