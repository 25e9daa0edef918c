package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	rcontext "github.com/lngkit/sparkrelease/pkg/context"
	"github.com/lngkit/sparkrelease/pkg/logger"
)

// Output subdirectories.
const (
	srcDir    = "js/src"
	legacyDir = "js/src.es5"
	sparkDir  = "spark"
)

// prepareOutput wipes the previous release and makes sure dist/ exists. In
// atomic mode the previous release is left alone and a staging directory
// is used instead.
func (r *Release) prepareOutput(ctx context.Context, rc *Context) error {
	dist := r.path(r.cfg.DistDir)

	rc.Dest = r.cfg.Dest
	rc.FinalDir = filepath.Join(dist, rc.Dest)

	out := rc.FinalDir
	if r.cfg.Atomic {
		out = filepath.Join(dist, fmt.Sprintf(".%s-%s", rc.Dest, rcontext.ShortRunID(rc.RunID)))
	}

	if err := r.sys.RemoveTree(out); err != nil {
		return err
	}
	if err := r.sys.MakeDir(dist); err != nil {
		return err
	}

	rc.OutputDir = out
	r.stageLogger(ctx).Debug("Output directory prepared", logger.WithField("dir", out))
	return nil
}

// copySkeleton lays down the generic web skeleton, merges the spark skeleton
// over it, and creates the bundle directories.
func (r *Release) copySkeleton(ctx context.Context, rc *Context) error {
	runtime := r.path(r.cfg.RuntimeDir)

	if err := r.sys.CopyTree(filepath.Join(runtime, "dist", "web"), rc.OutputDir); err != nil {
		return err
	}
	if err := r.sys.CopyTree(filepath.Join(runtime, "dist", "web-spark"), rc.OutputDir); err != nil {
		return err
	}

	for _, dir := range []string{srcDir, legacyDir} {
		if err := r.sys.MakeDir(rc.Out(dir)); err != nil {
			return err
		}
	}
	return nil
}

// copyFramework vendors the web framework bundle into js/src.
func (r *Release) copyFramework(ctx context.Context, rc *Context) error {
	src := r.path(r.cfg.FrameworkBundle)
	return r.sys.CopyFile(src, rc.Out(srcDir, filepath.Base(src)))
}

// copyAssets copies metadata, the shared UX assets and, when present, the
// application's static assets.
func (r *Release) copyAssets(ctx context.Context, rc *Context) error {
	metadata := r.path(r.cfg.MetadataFile)
	if err := r.sys.CopyFile(metadata, rc.Out(filepath.Base(metadata))); err != nil {
		return err
	}

	if err := r.sys.CopyTree(filepath.Join(r.path(r.cfg.RuntimeDir), "static-ux"), rc.Out("static-ux")); err != nil {
		return err
	}

	if r.cfg.StaticDir == "" {
		return nil
	}
	static := r.path(r.cfg.StaticDir)
	if !r.sys.Exists(static) {
		r.stageLogger(ctx).Debug("No static assets, skipping", logger.WithField("dir", static))
		return nil
	}
	return r.sys.CopyTree(static, rc.Out(filepath.Base(static)))
}

// publish swaps a staged release into its final location. The previous
// release is moved aside first and restored if the swap fails.
func (r *Release) publish(ctx context.Context, rc *Context) error {
	if !rc.Staged() {
		return nil
	}
	log := r.stageLogger(ctx)

	backup := rc.OutputDir + "-previous"
	hadPrevious := r.sys.Exists(rc.FinalDir)
	if hadPrevious {
		if err := r.sys.RemoveTree(backup); err != nil {
			return err
		}
		if err := r.sys.Rename(rc.FinalDir, backup); err != nil {
			return err
		}
	}

	if err := r.sys.Rename(rc.OutputDir, rc.FinalDir); err != nil {
		if hadPrevious {
			if restoreErr := r.sys.Rename(backup, rc.FinalDir); restoreErr != nil {
				return errors.Join(err, restoreErr)
			}
		}
		return err
	}
	rc.OutputDir = rc.FinalDir

	if hadPrevious {
		if err := r.sys.RemoveTree(backup); err != nil {
			log.Warn("Failed to remove previous release", logger.WithField("dir", backup), logger.WithField("error", err))
		}
	}
	log.Debug("Published release", logger.WithField("dir", rc.FinalDir))
	return nil
}
