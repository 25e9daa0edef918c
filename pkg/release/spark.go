package release

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/sysops"
)

// packageManifest is the throwaway package.json the spark dependency is
// installed from.
type packageManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

func (r *Release) sparkManifest() ([]byte, error) {
	deps := make(map[string]string, len(r.cfg.Spark.ExtraDependencies)+1)
	for name, version := range r.cfg.Spark.ExtraDependencies {
		deps[name] = version
	}
	deps[r.cfg.Spark.Package] = r.cfg.SparkSource()

	return json.Marshal(packageManifest{
		Name:         "tmp",
		Version:      "0.0.1",
		Dependencies: deps,
	})
}

// fetchSpark installs the spark framework into a temporary directory and
// copies its bundle into spark/. The temporary directory is always removed.
func (r *Release) fetchSpark(ctx context.Context, rc *Context) (err error) {
	log := r.stageLogger(ctx)

	tmp, err := r.sys.TempDir("sparkrelease-")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := r.sys.RemoveTree(tmp); rmErr != nil {
			if err == nil {
				err = rmErr
			} else {
				log.Warn("Failed to remove temporary directory",
					logger.WithField("dir", tmp), logger.WithField("error", rmErr))
			}
		}
	}()

	manifest, err := r.sparkManifest()
	if err != nil {
		return err
	}
	if err := r.sys.WriteFile(filepath.Join(tmp, "package.json"), manifest); err != nil {
		return err
	}

	cmd, err := sysops.ParseCommand(r.cfg.Spark.InstallCommand, map[string]string{"dir": tmp})
	if err != nil {
		return &ConfigError{Hint: "spark.installCommand is not a valid command", Err: err}
	}

	installCtx := ctx
	if r.cfg.Spark.InstallTimeout > 0 {
		var cancel context.CancelFunc
		installCtx, cancel = context.WithTimeout(ctx, r.cfg.Spark.InstallTimeout)
		defer cancel()
	}

	log.Info("Installing spark framework",
		logger.WithField("package", r.cfg.Spark.Package),
		logger.WithField("source", r.cfg.SparkSource()))
	if _, err := r.sys.Run(installCtx, cmd); err != nil {
		if errors.Is(installCtx.Err(), context.DeadlineExceeded) {
			log.Error("Install timed out", logger.WithField("timeout", r.cfg.Spark.InstallTimeout))
		}
		return err
	}

	artifact := filepath.Join(tmp, "node_modules", r.cfg.Spark.Package, filepath.FromSlash(r.cfg.Spark.Artifact))
	return r.sys.CopyFile(artifact, rc.Out(sparkDir, filepath.Base(artifact)))
}
