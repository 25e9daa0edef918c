package transpiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/lngkit/sparkrelease/pkg/sysops"
)

// Esbuild lowers syntax in-process with esbuild's transform API.
type Esbuild struct {
	target api.Target
	sys    sysops.System
}

var _ Transpiler = (*Esbuild)(nil)

// NewEsbuild creates an in-process transpiler for target.
func NewEsbuild(target api.Target, sys sysops.System) *Esbuild {
	return &Esbuild{target: target, sys: sys}
}

// Transpile reads src, lowers it to the configured target, and writes dst.
func (e *Esbuild) Transpile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return &Error{File: src, Err: err}
	}

	code, err := e.sys.ReadFile(src)
	if err != nil {
		return &Error{File: src, Err: err}
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     e.target,
		Sourcefile: filepath.Base(src),
		Charset:    api.CharsetUTF8,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			} else {
				msgs = append(msgs, m.Text)
			}
		}
		return &Error{File: src, Err: fmt.Errorf("%s", strings.Join(msgs, "; "))}
	}

	if err := e.sys.WriteFile(dst, result.Code); err != nil {
		return &Error{File: src, Err: err}
	}
	return nil
}
