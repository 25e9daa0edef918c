package release

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/bundler"
	"github.com/lngkit/sparkrelease/pkg/config"
	rcontext "github.com/lngkit/sparkrelease/pkg/context"
	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/sysops"
	"github.com/lngkit/sparkrelease/pkg/transpiler"
)

// Dependencies are the collaborators a Release drives.
type Dependencies struct {
	System     sysops.System
	Bundler    bundler.Bundler
	Transpiler transpiler.Transpiler
	Logger     logger.Logger
}

// Release builds dist/<dest> for one project.
type Release struct {
	cfg        *config.Config
	root       string
	sys        sysops.System
	bundler    bundler.Bundler
	transpiler transpiler.Transpiler
	log        logger.Logger
}

// New creates a Release for the project at root. Missing dependencies are
// filled with the local filesystem, esbuild, and the configured transpiler.
func New(cfg *config.Config, root string, deps Dependencies) (*Release, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.System == nil {
		deps.System = sysops.NewLocal(deps.Logger)
	}
	if deps.Bundler == nil {
		deps.Bundler = bundler.NewEsbuild(absRoot)
	}
	if deps.Transpiler == nil {
		deps.Transpiler, err = transpiler.New(transpiler.Options{
			Engine:  cfg.Transpile.Engine,
			Target:  cfg.Transpile.Target,
			Command: cfg.Transpile.Command,
		}, deps.System)
		if err != nil {
			return nil, err
		}
	}

	return &Release{
		cfg:        cfg,
		root:       absRoot,
		sys:        deps.System,
		bundler:    deps.Bundler,
		transpiler: deps.Transpiler,
		log:        deps.Logger,
	}, nil
}

// Pipeline returns the ordered steps of a release.
func (r *Release) Pipeline() *Pipeline {
	steps := []Step{
		{Name: "load-metadata", Run: r.loadMetadata},
		{Name: "prepare-output", Needs: NeedsIdentifier, Run: r.prepareOutput},
		{Name: "copy-skeleton", Needs: NeedsIdentifier | NeedsOutput, Run: r.copySkeleton},
		{Name: "copy-framework", Needs: NeedsIdentifier | NeedsOutput, Run: r.copyFramework},
		{Name: "fetch-spark", Needs: NeedsIdentifier | NeedsOutput, Run: r.fetchSpark},
		{Name: "copy-assets", Needs: NeedsIdentifier | NeedsOutput, Run: r.copyAssets},
		{Name: "bundle-ux", Needs: NeedsIdentifier | NeedsOutput, Run: r.bundleUX},
		{Name: "bundle-app", Needs: NeedsIdentifier | NeedsOutput, Run: r.bundleApp},
		{Name: "bundle-spark-startup", Needs: NeedsIdentifier | NeedsOutput, Run: r.bundleSparkStartup},
		{Name: "transpile", Needs: NeedsIdentifier | NeedsOutput, Run: r.transpile},
	}
	if r.cfg.Atomic {
		steps = append(steps, Step{Name: "publish", Needs: NeedsIdentifier | NeedsOutput, Run: r.publish})
	}
	return NewPipeline(r.log, steps...)
}

// Run executes the whole pipeline and returns the finished context. On
// failure the context reflects how far the run got.
func (r *Release) Run(ctx context.Context) (*Context, error) {
	ctx = rcontext.EnrichContext(ctx)
	rc := NewContext(r.root, rcontext.GetRunID(ctx))

	log := logger.WithContext(ctx, r.log)
	log.Info("Starting release", logger.WithField("root", r.root))

	err := r.Pipeline().Run(ctx, rc)
	if err != nil && rc.Staged() {
		if rmErr := r.sys.RemoveTree(rc.OutputDir); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}
	return rc, err
}

// Config returns the configuration the release was created with.
func (r *Release) Config() *config.Config {
	return r.cfg
}

// FinalDir is where a successful release ends up.
func (r *Release) FinalDir() string {
	return filepath.Join(config.Resolve(r.root, r.cfg.DistDir), r.cfg.Dest)
}

// Clean removes the release output.
func (r *Release) Clean() error {
	return r.sys.RemoveTree(r.FinalDir())
}

func (r *Release) path(p string) string {
	return config.Resolve(r.root, p)
}

func (r *Release) stageLogger(ctx context.Context) logger.Logger {
	return logger.WithContext(ctx, r.log)
}
