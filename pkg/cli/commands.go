package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/notifier"
	"github.com/lngkit/sparkrelease/pkg/release"
	"github.com/spf13/cobra"
)

func (c *CLI) newReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build dist/web-spark once",
		Long: `Build the spark web release into dist/web-spark.

The previous release is removed first. With --atomic the new release is
staged next to it and only replaces it once every step succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRelease(cmd)
			if err != nil {
				return err
			}
			return c.runRelease(cmd.Context(), r)
		},
	}

	cmd.Flags().Bool("atomic", false, "stage the release and swap it into place on success")
	cmd.Flags().Bool("notify", false, "show a desktop notification when the release finishes")
	cmd.Flags().Bool("beep", false, "ring the system bell when a notified release fails")
	return cmd
}

// runRelease runs one release and reports the outcome on the terminal and,
// when enabled, the desktop.
func (c *CLI) runRelease(ctx context.Context, r *release.Release) error {
	n := notifier.New(notifier.Config{
		Enabled: r.Config().Notifications.Enabled,
		Beep:    r.Config().Notifications.Beep,
		Send:    c.notify,
		Sound:   c.sound,
	}, c.logger)

	start := time.Now()
	rc, err := r.Run(ctx)
	if err != nil {
		n.NotifyReleaseFailure(rc.Identifier, err)
		return err
	}

	for _, a := range rc.Artifacts {
		fields := []logger.Field{logger.WithField("path", a.Path)}
		if a.Analysis != nil {
			fields = append(fields, logger.WithField("size", a.Analysis.Size()))
		}
		c.logger.Debug("Artifact "+a.Name, fields...)
	}
	c.logger.Success("Release finished", logger.WithField("duration", time.Since(start).Round(time.Millisecond)))
	n.NotifyReleaseSuccess(rc.Identifier, rc.FinalDir, time.Since(start))

	fmt.Fprintf(c.output, "Web release created! %s\n", rc.FinalDir)
	fmt.Fprintln(c.output, "(Use a static web server to host it)")
	return nil
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove dist/web-spark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRelease(cmd)
			if err != nil {
				return err
			}
			if err := r.Clean(); err != nil {
				return err
			}
			fmt.Fprintf(c.output, "Removed %s\n", r.FinalDir())
			return nil
		},
	}
}

func (c *CLI) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			_, err = c.output.Write(out)
			return err
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "📦 sparkrelease v%s\n", c.opts.Version)
		},
	}
}
