// Package fuzzy ranks symbol names against a subsequence query.
//
// Every query rune must appear in the candidate in order. Candidates are
// scored for consecutive runs, word and camelCase boundaries, and prefix
// matches, then returned best first.
//
// Matching a large candidate set is a long operation: Match polls a
// cancel.Token between bounded batches of candidates and, once
// cancellation is requested, stops and returns an Outcome marked
// Cancelled instead of a partial result.
package fuzzy
