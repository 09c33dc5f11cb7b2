// Package config loads scriptnav settings.
//
// Settings come from three places, later ones winning: built-in
// defaults, a TOML or YAML file chosen by extension, and SCRIPTNAV_*
// environment variables. Command-line flags are applied on top by the
// caller.
//
//	[buffer]
//	change_number_threshold = 64
//	change_length_threshold = 4096
//	max_versions = 64
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[watch]
//	enabled = true
//	debounce_ms = 100
//	ignore = ["**/node_modules/**"]
package config
