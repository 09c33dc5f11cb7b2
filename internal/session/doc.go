// Package session implements the line-oriented command protocol.
//
// A client writes one command per line: a command name followed by
// space-separated arguments, where any argument may be written as a Go
// quoted string ("..." or `...`) to carry spaces or escapes. Every
// command produces exactly one JSON response line carrying the request's
// sequence number.
//
// A session owns its open documents. Commands are executed one at a time
// by a single dispatcher goroutine; only "cancel" is handled by the reader
// as soon as it arrives, so that it can interrupt the long operation the
// dispatcher is running.
package session
