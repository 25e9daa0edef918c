package cli

import (
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/config"
	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/spf13/cobra"
)

// Options holds the global flags, keeping the CLI free of package state.
type Options struct {
	ConfigFile  string
	ProjectRoot string
	Verbosity   string
	LogFile     string
	Version     string
}

// NewOptions creates CLI options with defaults
func NewOptions() *Options {
	return &Options{
		ProjectRoot: ".",
		Verbosity:   "info",
		Version:     "dev",
	}
}

// root returns the absolute project root.
func (o *Options) root() (string, error) {
	return filepath.Abs(o.ProjectRoot)
}

// loadConfig reads the release configuration for the project root, letting
// flags and SPARKRELEASE_* variables override the file.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, err := c.opts.root()
	if err != nil {
		return nil, err
	}

	v := config.NewViper(root, c.opts.ConfigFile)
	for key, flag := range map[string]string{
		"atomic":                "atomic",
		"notifications.enabled": "notify",
		"notifications.beep":    "beep",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using config file", logger.WithField("file", used))
	}
	return cfg, nil
}
