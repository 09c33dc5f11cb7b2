package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "SCRIPTNAV_"

type envBinding struct {
	name  string
	apply func(c *Config, value string) error
}

func intSetter(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func stringSetter(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, value string) error {
		*dst(c) = value
		return nil
	}
}

var envBindings = []envBinding{
	{"CHANGE_NUMBER_THRESHOLD", intSetter(func(c *Config) *int { return &c.Buffer.ChangeNumberThreshold })},
	{"CHANGE_LENGTH_THRESHOLD", intSetter(func(c *Config) *int { return &c.Buffer.ChangeLengthThreshold })},
	{"MAX_VERSIONS", intSetter(func(c *Config) *int { return &c.Buffer.MaxVersions })},
	{"LOG_LEVEL", stringSetter(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", stringSetter(func(c *Config) *string { return &c.Logging.Format })},
	{"LOG_FILE", stringSetter(func(c *Config) *string { return &c.Logging.File })},
	{"METRICS_ADDR", stringSetter(func(c *Config) *string { return &c.Metrics.Addr })},
	{"WATCH", func(c *Config, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		c.Watch.Enabled = b
		return nil
	}},
	{"WATCH_DEBOUNCE_MS", intSetter(func(c *Config) *int { return &c.Watch.DebounceMS })},
	{"WATCH_IGNORE", func(c *Config, value string) error {
		var globs []string
		for _, g := range strings.Split(value, ",") {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		c.Watch.Ignore = globs
		return nil
	}},
	{"SEARCH_MAX_RESULTS", intSetter(func(c *Config) *int { return &c.Search.MaxResults })},
	{"SEARCH_POLL_EVERY", intSetter(func(c *Config) *int { return &c.Search.PollEvery })},
	{"SEARCH_MIN_SCORE", intSetter(func(c *Config) *int { return &c.Search.MinScore })},
}

// ApplyEnv overrides settings from SCRIPTNAV_* variables found through
// lookup. Empty values count as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(c, value); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, name, value, err)
		}
	}
	return nil
}

// EnvNames returns the names of all recognised environment variables.
func EnvNames() []string {
	names := make([]string, len(envBindings))
	for i, b := range envBindings {
		names[i] = EnvPrefix + b.name
	}
	return names
}
