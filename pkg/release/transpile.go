package release

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/lngkit/sparkrelease/internal/parallel"
	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/transpiler"
)

// TranspiledFiles are the js/src bundles mirrored into js/src.es5.
var TranspiledFiles = []string{"appBundle.js", "lightning-web.js", "ux.js"}

// transpile lowers every bundle into js/src.es5 concurrently and waits for
// all of them.
func (r *Release) transpile(ctx context.Context, rc *Context) error {
	log := r.stageLogger(ctx)

	files := append([]string(nil), TranspiledFiles...)
	if base := filepath.Base(r.cfg.FrameworkBundle); base != "lightning-web.js" {
		files[1] = base
	}

	group, gctx := parallel.NewSafeGroup(ctx, log)
	group.SetLimit(len(files))
	for _, name := range files {
		src := rc.Out(srcDir, name)
		dst := rc.Out(legacyDir, name)
		group.Go(func() error {
			log.Info("Transpiling", logger.WithField("file", filepath.Join(srcDir, filepath.Base(src))))
			err := parallel.Safely(log, func() error {
				return r.transpiler.Transpile(gctx, src, dst)
			})
			var panicErr *parallel.PanicError
			if errors.As(err, &panicErr) {
				return &transpiler.Error{File: src, Err: err}
			}
			return err
		})
	}
	return group.Wait()
}
