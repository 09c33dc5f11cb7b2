package analyzer

import (
	"errors"

	"github.com/dshills/scriptnav/internal/engine/versioncache"
)

// ErrUnknownFile indicates a query for a file the analyzer has not seen.
var ErrUnknownFile = errors.New("file not indexed")

// Location is a span in a file.
type Location struct {
	File   string `json:"file"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Info describes the identifier under the cursor.
type Info struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Occurrences int    `json:"occurrences"`
	LineText    string `json:"lineText"`
}

// Completion is a completion candidate.
type Completion struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TextEdit replaces [Start, End) with NewText.
type TextEdit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"newText"`
}

// Symbol is a declaration found in a file.
type Symbol struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Location Location `json:"location"`
}

// Analyzer answers navigation queries. Offsets are byte offsets into the
// given snapshot.
type Analyzer interface {
	// Update brings the index of file up to date with snap.
	Update(file string, snap *versioncache.Snapshot) error

	// Remove forgets file.
	Remove(file string)

	// Definition returns the declaration of the identifier at offset.
	Definition(file string, snap *versioncache.Snapshot, offset int) (Location, bool, error)

	// QuickInfo describes the identifier at offset.
	QuickInfo(file string, snap *versioncache.Snapshot, offset int) (Info, bool, error)

	// Completions lists candidates for the identifier prefix before offset.
	Completions(file string, snap *versioncache.Snapshot, offset int) ([]Completion, error)

	// Rename returns every occurrence of the identifier at offset.
	Rename(file string, snap *versioncache.Snapshot, offset int) ([]Location, error)

	// FormatOnKey returns the edits to apply after key was typed ending at
	// offset.
	FormatOnKey(file string, snap *versioncache.Snapshot, offset int, key string) ([]TextEdit, error)

	// Symbols returns the declarations of every indexed file.
	Symbols() []Symbol
}
