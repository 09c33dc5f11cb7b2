package versioncache

// Default tuning. None of these values is semantically significant; they
// trade per-edit cost against the cost of a periodic rebuild.
const (
	// DefaultChangeNumberThreshold is the pending change count past which
	// the cache consolidates.
	DefaultChangeNumberThreshold = 64

	// DefaultChangeLengthThreshold is the pending inserted plus deleted byte
	// count past which the cache consolidates.
	DefaultChangeLengthThreshold = 4096

	// DefaultMaxVersions is the number of recent snapshots retained.
	DefaultMaxVersions = 64
)

// ConsolidationInfo describes a consolidation that just happened.
type ConsolidationInfo struct {
	// Version is the version whose tree was rebuilt.
	Version int

	// Changes is the number of pending changes discarded.
	Changes int

	// Length is the pending inserted plus deleted byte count discarded.
	Length int

	// Lines is the line count of the rebuilt tree.
	Lines int
}

// Options configures a ScriptVersionCache.
type Options struct {
	ChangeNumberThreshold int
	ChangeLengthThreshold int
	MaxVersions           int

	// StartVersion is the version of the initial snapshot.
	StartVersion int

	// OnConsolidate, if set, is called after every consolidation.
	OnConsolidate func(ConsolidationInfo)
}

// DefaultOptions returns the default cache options.
func DefaultOptions() Options {
	return Options{
		ChangeNumberThreshold: DefaultChangeNumberThreshold,
		ChangeLengthThreshold: DefaultChangeLengthThreshold,
		MaxVersions:           DefaultMaxVersions,
	}
}

// Option configures a cache.
type Option func(*Options)

// WithChangeNumberThreshold sets the pending change count threshold.
func WithChangeNumberThreshold(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChangeNumberThreshold = n
		}
	}
}

// WithChangeLengthThreshold sets the pending change length threshold.
func WithChangeLengthThreshold(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.ChangeLengthThreshold = n
		}
	}
}

// WithMaxVersions sets how many recent snapshots are retained.
func WithMaxVersions(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxVersions = n
		}
	}
}

// WithStartVersion sets the version of the initial snapshot.
func WithStartVersion(v int) Option {
	return func(o *Options) {
		if v >= 0 {
			o.StartVersion = v
		}
	}
}

// WithConsolidateHook registers a callback run after every consolidation.
func WithConsolidateHook(fn func(ConsolidationInfo)) Option {
	return func(o *Options) {
		o.OnConsolidate = fn
	}
}

// WithOptions replaces all options at once, keeping defaults for
// non-positive thresholds.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		hook := o.OnConsolidate
		defaults := *o
		*o = opts
		if o.ChangeNumberThreshold <= 0 {
			o.ChangeNumberThreshold = defaults.ChangeNumberThreshold
		}
		if o.ChangeLengthThreshold <= 0 {
			o.ChangeLengthThreshold = defaults.ChangeLengthThreshold
		}
		if o.MaxVersions <= 0 {
			o.MaxVersions = defaults.MaxVersions
		}
		if o.OnConsolidate == nil {
			o.OnConsolidate = hook
		}
	}
}
