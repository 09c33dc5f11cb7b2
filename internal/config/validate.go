package config

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validFormats = map[string]bool{
	"text": true, "json": true,
}

// Validate checks every setting and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	positive := func(path string, v int) {
		if v <= 0 {
			errs = append(errs, &ValidationError{Path: path, Message: "must be positive", Value: v})
		}
	}

	positive("buffer.change_number_threshold", c.Buffer.ChangeNumberThreshold)
	positive("buffer.change_length_threshold", c.Buffer.ChangeLengthThreshold)
	positive("buffer.max_versions", c.Buffer.MaxVersions)
	positive("search.max_results", c.Search.MaxResults)
	positive("search.poll_every", c.Search.PollEvery)

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{Path: "logging.level", Message: "unknown log level", Value: c.Logging.Level})
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "must be text or json", Value: c.Logging.Format})
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, &ValidationError{Path: "watch.debounce_ms", Message: "must not be negative", Value: c.Watch.DebounceMS})
	}
	for _, g := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(g) {
			errs = append(errs, &ValidationError{Path: "watch.ignore", Message: "invalid glob", Value: g})
		}
	}
	if c.Search.MinScore < 0 {
		errs = append(errs, &ValidationError{Path: "search.min_score", Message: "must not be negative", Value: c.Search.MinScore})
	}
	return errors.Join(errs...)
}
