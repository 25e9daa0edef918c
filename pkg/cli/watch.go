package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/config"
	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/release"
	"github.com/lngkit/sparkrelease/pkg/watch"
	"github.com/spf13/cobra"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the release whenever sources change",
		Long: `Build the release once, then watch the configured paths (src, static and
metadata.json by default) and rebuild after changes settle. A failed build
is reported and watching continues. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd)
		},
	}

	cmd.Flags().Bool("atomic", false, "stage each release and swap it into place on success")
	cmd.Flags().Bool("notify", false, "show a desktop notification after each release")
	cmd.Flags().Bool("beep", false, "ring the system bell when a notified release fails")
	return cmd
}

// runWatch builds once and then after every settled batch of changes. The
// configuration is reloaded for each build so edits to it take effect.
func (c *CLI) runWatch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	r, err := c.newRelease(cmd)
	if err != nil {
		return err
	}
	cfg := r.Config()
	root, err := c.opts.root()
	if err != nil {
		return err
	}

	w, err := watch.New(c.logger, cfg.Watch.SettlingDelay)
	if err != nil {
		return err
	}
	defer w.Close()

	w.Exclude(config.Resolve(root, cfg.DistDir))
	if err := w.Ignore(cfg.Watch.Ignore...); err != nil {
		return fmt.Errorf("%w: watch.ignore: %v", config.ErrInvalidConfig, err)
	}

	paths := make([]string, 0, len(cfg.Watch.Paths)+3)
	for _, p := range cfg.Watch.Paths {
		paths = append(paths, config.Resolve(root, p))
	}
	if c.opts.ConfigFile != "" {
		file, err := filepath.Abs(c.opts.ConfigFile)
		if err != nil {
			return err
		}
		paths = append(paths, file)
	} else {
		for _, ext := range []string{"json", "yaml", "yml"} {
			paths = append(paths, filepath.Join(root, config.FileName+"."+ext))
		}
	}
	if err := w.Add(paths...); err != nil {
		return err
	}

	rebuild := func(ctx context.Context) {
		err := c.runRelease(ctx, r)
		if err != nil && ctx.Err() == nil {
			c.logger.Error(release.Describe(err))
		}
	}

	rebuild(ctx)
	c.logger.Info("Watching for changes", logger.WithField("paths", len(w.Watched())))

	err = w.Run(ctx, func(ctx context.Context, changed []string) {
		c.logger.Debug("Rebuilding", logger.WithField("changed", changed))
		next, err := c.newRelease(cmd)
		if err != nil {
			c.logger.Error("Keeping previous configuration", logger.WithField("error", err))
		} else {
			r = next
		}
		rebuild(ctx)
	})
	if errors.Is(err, context.Canceled) {
		c.logger.Info("Stopped watching")
		return nil
	}
	return err
}
