// Package transpiler rewrites generated bundles for older JavaScript runtimes.
package transpiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/lngkit/sparkrelease/pkg/sysops"
)

//go:generate mockgen -destination=../mocks/transpiler_mock.go -package=mocks github.com/lngkit/sparkrelease/pkg/transpiler Transpiler

// ErrTranspile is matched by every transpiler Error.
var ErrTranspile = errors.New("transpile failed")

// Transpiler transforms the file at src and writes the result to dst.
type Transpiler interface {
	Transpile(ctx context.Context, src, dst string) error
}

// Error reports a failed transform of File.
type Error struct {
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transpile %s: %v", e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrTranspile.
func (e *Error) Is(target error) bool { return target == ErrTranspile }

// Engine names accepted by New.
const (
	EngineEsbuild = "esbuild"
	EngineCommand = "command"
)

// Options selects and configures an engine.
type Options struct {
	Engine string
	// Target is the esbuild language target, e.g. "es5" or "es2015".
	Target string
	// Command is the external transform command; {src} and {dst} are replaced.
	Command string
}

// New creates the transpiler named by opts.Engine.
func New(opts Options, sys sysops.System) (Transpiler, error) {
	switch strings.ToLower(opts.Engine) {
	case EngineEsbuild, "":
		target, err := ParseTarget(opts.Target)
		if err != nil {
			return nil, err
		}
		return NewEsbuild(target, sys), nil
	case EngineCommand:
		if strings.TrimSpace(opts.Command) == "" {
			return nil, fmt.Errorf("transpiler engine %q requires a command", opts.Engine)
		}
		return NewCommand(opts.Command, sys), nil
	default:
		return nil, fmt.Errorf("unknown transpiler engine %q", opts.Engine)
	}
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es6":    api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name to esbuild's constant; empty means es5.
func ParseTarget(name string) (api.Target, error) {
	if name == "" {
		return api.ES5, nil
	}
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown transpile target %q", name)
	}
	return t, nil
}
