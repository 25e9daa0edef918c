package release

import (
	"context"
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/bundler"
	"github.com/lngkit/sparkrelease/pkg/logger"
)

// SparkBanner loads the ux and app bundles into the spark global scope before
// the startup code runs.
const SparkBanner = "eval.call(null, require('fs').readFileSync(__dirname + '/js/src/ux.js').toString('utf8'));\n" +
	"eval.call(null, require('fs').readFileSync(__dirname + '/js/src/appBundle.js').toString('utf8'));\n"

// SparkExternals are the startup imports provided as globals at runtime.
var SparkExternals = []bundler.External{
	{Specifier: "node-fetch", Global: "fetch"},
	{Specifier: "wpe-lightning-spark", Global: "lng"},
	{Specifier: "./src/ux.mjs", Global: "ux"},
	{Specifier: "./src/app.mjs", Global: "appBundle"},
}

func (r *Release) bundleUX(ctx context.Context, rc *Context) error {
	return r.bundle(ctx, rc, "ux", bundler.Options{
		Entry:      filepath.Join(r.path(r.cfg.RuntimeDir), "js", "src", "ux.js"),
		GlobalName: "ux",
	}, filepath.Join(srcDir, "ux.js"))
}

func (r *Release) bundleApp(ctx context.Context, rc *Context) error {
	return r.bundle(ctx, rc, "appBundle", bundler.Options{
		Entry:      r.path(r.cfg.AppEntry),
		GlobalName: "appBundle",
	}, filepath.Join(srcDir, "appBundle.js"))
}

func (r *Release) bundleSparkStartup(ctx context.Context, rc *Context) error {
	return r.bundle(ctx, rc, "start", bundler.Options{
		Entry:     filepath.Join(r.path(r.cfg.RuntimeDir), "dist", "spark", "start.mjs"),
		Externals: SparkExternals,
		Banner:    SparkBanner,
	}, "start.js")
}

// bundle builds opts and writes the result to rel inside the output dir.
func (r *Release) bundle(ctx context.Context, rc *Context, name string, opts bundler.Options, rel string) error {
	log := r.stageLogger(ctx)
	log.Info("Generating bundle", logger.WithField("entry", opts.Entry))

	opts.Outfile = rc.Out(rel)
	res, err := r.bundler.Bundle(ctx, opts)
	if err != nil {
		return err
	}
	if err := r.sys.WriteFile(opts.Outfile, res.Code); err != nil {
		return err
	}

	rc.Artifacts = append(rc.Artifacts, Artifact{
		Name:     name,
		Path:     filepath.ToSlash(rel),
		Bytes:    len(res.Code),
		Analysis: res.Analysis,
	})

	if a := res.Analysis; a != nil {
		fields := []logger.Field{
			logger.WithField("size", a.Size()),
			logger.WithField("inputs", len(a.Inputs)),
		}
		if len(a.Globals) > 0 {
			fields = append(fields, logger.WithField("globals", a.Globals))
		}
		log.Debug("Bundle written", fields...)
		for _, in := range a.Largest(3) {
			log.Debug("Bundle input", logger.WithField("path", in.Path), logger.WithField("bytes", in.Bytes))
		}
	}
	return nil
}
