package main

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scriptnav/internal/config"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scriptnav",
		Short: "Versioned text buffers and source navigation over a line protocol",
		Long: `scriptnav keeps open source files as versioned line-indexed buffers and
answers navigation queries (definition, rename, completions, symbol search)
over a simple line-oriented protocol on stdin/stdout.

Example usage:
  scriptnav serve                          # Serve the protocol on stdin/stdout
  scriptnav serve --watch --metrics-addr :9090
  scriptnav config --format yaml           # Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (.toml, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(opts), newConfigCmd(opts), newVersionCmd())
	return cmd
}

// load reads the configuration and applies persistent flags.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func newConfigCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var data []byte
			switch strings.ToLower(format) {
			case "toml":
				data, err = toml.Marshal(cfg)
			case "yaml", "yml":
				data, err = yaml.Marshal(cfg)
			default:
				return fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "output format: toml or yaml")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scriptnav %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
