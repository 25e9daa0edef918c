// Package bundler turns an entry module into a single self-executing bundle.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=../mocks/bundler_mock.go -package=mocks github.com/lngkit/sparkrelease/pkg/bundler Bundler

// ErrBundle is matched by every bundler Error.
var ErrBundle = errors.New("bundling failed")

// Bundler produces an immediately-invoked bundle from an entry module.
type Bundler interface {
	Bundle(ctx context.Context, opts Options) (*Result, error)
}

// External is a module left out of the bundle and read from a global
// variable at load time instead.
type External struct {
	// Specifier is the import path as written in source, e.g. "node-fetch"
	// or "./src/ux.mjs". Relative specifiers are resolved against the entry
	// module's directory.
	Specifier string
	// Global is the variable the module's value is taken from.
	Global string
}

// Options configures one bundle.
type Options struct {
	Entry      string
	Outfile    string
	GlobalName string
	Externals  []External
	// Banner is emitted verbatim before the bundle body.
	Banner string
}

// Result is a generated bundle.
type Result struct {
	Code     []byte
	Analysis *Analysis
}

// Error reports a failed bundle along with the bundler's diagnostics.
type Error struct {
	Entry    string
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("bundle %s: %s", e.Entry, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("bundle %s: %v", e.Entry, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrBundle.
func (e *Error) Is(target error) bool { return target == ErrBundle }
