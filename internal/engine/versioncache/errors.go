package versioncache

import (
	"errors"

	"github.com/dshills/scriptnav/internal/engine/lineindex"
)

// Errors returned by the version cache and its snapshots.
var (
	// ErrVersionOrder indicates a change range was requested from a newer
	// version to an older one.
	ErrVersionOrder = errors.New("old version is newer than new version")

	// ErrUnknownVersion indicates a version that was never published.
	ErrUnknownVersion = errors.New("unknown version")

	// ErrVersionEvicted indicates a version that is no longer retained.
	ErrVersionEvicted = errors.New("version no longer retained")

	// ErrReloadDiscontinuity indicates a change range across a reload, or
	// between snapshots of different caches. No exact range exists.
	ErrReloadDiscontinuity = errors.New("change range crosses a reload")

	// ErrOffsetOutOfRange is lineindex.ErrOffsetOutOfRange.
	ErrOffsetOutOfRange = lineindex.ErrOffsetOutOfRange

	// ErrLineOutOfRange is lineindex.ErrLineOutOfRange.
	ErrLineOutOfRange = lineindex.ErrLineOutOfRange

	// ErrRangeInvalid is lineindex.ErrRangeInvalid.
	ErrRangeInvalid = lineindex.ErrRangeInvalid
)
