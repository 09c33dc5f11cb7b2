package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all scriptnav settings.
type Config struct {
	Buffer  BufferConfig  `toml:"buffer" yaml:"buffer"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch"`
	Search  SearchConfig  `toml:"search" yaml:"search"`
}

// BufferConfig tunes the per-document version cache.
type BufferConfig struct {
	// ChangeNumberThreshold is the number of pending edits that triggers
	// a consolidation.
	ChangeNumberThreshold int `toml:"change_number_threshold" yaml:"change_number_threshold"`
	// ChangeLengthThreshold is the number of pending edited bytes that
	// triggers a consolidation.
	ChangeLengthThreshold int `toml:"change_length_threshold" yaml:"change_length_threshold"`
	// MaxVersions is how many recent snapshots each document retains.
	MaxVersions int `toml:"max_versions" yaml:"max_versions"`
}

// LoggingConfig selects the log level, format and optional log file.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// WatchConfig configures reloading open files changed on disk.
type WatchConfig struct {
	Enabled    bool     `toml:"enabled" yaml:"enabled"`
	DebounceMS int      `toml:"debounce_ms" yaml:"debounce_ms"`
	Ignore     []string `toml:"ignore" yaml:"ignore"`
}

// SearchConfig tunes navto.
type SearchConfig struct {
	MaxResults int `toml:"max_results" yaml:"max_results"`
	PollEvery  int `toml:"poll_every" yaml:"poll_every"`
	MinScore   int `toml:"min_score" yaml:"min_score"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Buffer: BufferConfig{
			ChangeNumberThreshold: 64,
			ChangeLengthThreshold: 4096,
			MaxVersions:           64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMS: 100,
			Ignore:     []string{"**/.git/**", "**/node_modules/**", "*.swp", "*~"},
		},
		Search: SearchConfig{
			MaxResults: 50,
			PollEvery:  256,
		},
	}
}

// Load builds a Config from defaults, the file at path (if path is not
// empty) and the process environment. The result is validated.
func Load(path string) (*Config, error) {
	return LoadFS(osFS{}, path, os.LookupEnv)
}

// FileSystem is the file access Load needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// LoadFS is Load with an explicit file system and environment lookup.
func LoadFS(fsys FileSystem, path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(fsys, path); err != nil {
			return nil, err
		}
	}
	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data in the given format ("toml" or "yaml") over the
// defaults. It does not consult the environment.
func Parse(format string, data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(format, "<input>", data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(fsys FileSystem, path string) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = "toml"
	case ".yaml", ".yml":
		format = "yaml"
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return c.decode(format, path, data)
}

func (c *Config) decode(format, source string, data []byte) error {
	switch format {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			perr := &ParseError{Path: source, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return perr
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			// An empty document decodes to io.EOF and leaves the defaults.
			if len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			return &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return nil
}
