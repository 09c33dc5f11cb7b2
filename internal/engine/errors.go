package engine

import (
	"errors"

	"github.com/dshills/scriptnav/internal/engine/versioncache"
)

// Errors returned by engine operations.
var (
	// ErrOpenFailed indicates a document's file could not be read.
	ErrOpenFailed = errors.New("open failed")

	// ErrReloadFailed indicates the authoritative content for a reload was
	// unavailable. The previous version remains current.
	ErrReloadFailed = errors.New("reload did not occur")

	// ErrOffsetOutOfRange indicates an offset outside the document.
	ErrOffsetOutOfRange = versioncache.ErrOffsetOutOfRange

	// ErrLineOutOfRange indicates a line outside the document.
	ErrLineOutOfRange = versioncache.ErrLineOutOfRange

	// ErrRangeInvalid indicates an edit or text range outside the document.
	ErrRangeInvalid = versioncache.ErrRangeInvalid
)
