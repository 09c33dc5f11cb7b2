// Package watcher reports on-disk changes to the files a session has open.
//
// A Source delivers raw filesystem events for watched directories. The
// FSNotify source is backed by fsnotify; Debounced wraps any Source and
// coalesces bursts of events for the same path; Files narrows a Source
// down to an explicit set of tracked files, reference counting the
// directories it has to watch to see them.
//
// Paths matching any of the configured ignore globs (doublestar syntax,
// tested against both the slash-separated path and its base name) are
// never reported.
package watcher
