// Package cli provides the command-line interface for sparkrelease
package cli

import (
	"context"
	"io"
	"os"

	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/notifier"
	"github.com/lngkit/sparkrelease/pkg/release"
	"github.com/spf13/cobra"
)

// CLI holds the command tree and everything commands share.
type CLI struct {
	opts     *Options
	rootCmd  *cobra.Command
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer

	// deps, notify and sound are overridable for tests.
	deps   release.Dependencies
	notify notifier.SendFunc
	sound  notifier.SoundFunc
}

// NewCLI creates a new CLI instance with the given options
func NewCLI(opts *Options) *CLI {
	if opts == nil {
		opts = NewOptions()
	}

	cli := &CLI{
		opts:     opts,
		logger:   logger.Discard(),
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(opts *Options, output, errorOut io.Writer) *CLI {
	cli := NewCLI(opts)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// SetDependencies replaces the release collaborators used by every command.
func (c *CLI) SetDependencies(deps release.Dependencies) {
	c.deps = deps
}

// SetNotifier replaces the desktop notification sender.
func (c *CLI) SetNotifier(send notifier.SendFunc) {
	c.notify = send
}

// SetSound replaces the failure sound.
func (c *CLI) SetSound(sound notifier.SoundFunc) {
	c.sound = sound
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "sparkrelease",
		Short: "Package a Lightning app for the spark runtime",
		Long: `📦 sparkrelease - builds dist/web-spark from a Lightning application

It copies the web and spark skeletons, fetches the spark framework, bundles
the app, ux and spark startup code, and down-levels the bundles for older
runtimes.`,

		PersistentPreRunE: c.initialize,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.opts.Version
	c.rootCmd.SetVersionTemplate("📦 sparkrelease v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newReleaseCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.opts.ConfigFile, "config", "", "config file (default: sparkrelease.config.{json,yaml} in the project root)")
	flags.StringVar(&c.opts.ProjectRoot, "root", c.opts.ProjectRoot, "project root directory")
	flags.StringVarP(&c.opts.Verbosity, "verbosity", "v", c.opts.Verbosity, "log level (debug, info, warn, error)")
	flags.StringVar(&c.opts.LogFile, "log-file", "", "also write logs to this file")
}

func (c *CLI) initialize(cmd *cobra.Command, args []string) error {
	if f, ok := c.errorOut.(*os.File); ok && f == os.Stderr {
		c.logger = logger.CreateLogger(c.opts.LogFile, c.opts.Verbosity)
	} else {
		c.logger = logger.CreateLoggerWithOutput(c.opts.Verbosity, c.errorOut)
	}
	return nil
}

// newRelease builds a Release for the project root with the CLI's
// dependencies filled in.
func (c *CLI) newRelease(cmd *cobra.Command) (*release.Release, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	root, err := c.opts.root()
	if err != nil {
		return nil, err
	}

	deps := c.deps
	if deps.Logger == nil {
		deps.Logger = c.logger
	}
	r, err := release.New(cfg, root, deps)
	if err != nil {
		return nil, err
	}
	return r, nil
}
