// Package release assembles the web-spark release bundle from an application
// tree, the Lightning runtime and the spark framework variant.
package release

import (
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/bundler"
)

// Context is the state of a single release run. It is created once, handed
// to every step by pointer, and discarded when the run ends.
type Context struct {
	// Root is the project directory every relative input is resolved against.
	Root  string
	RunID string

	// Set by the metadata step.
	Metadata   map[string]interface{}
	Identifier string

	// Set by the prepare step. OutputDir is where steps write; it differs
	// from FinalDir only while an atomic release is being staged.
	Dest      string
	OutputDir string
	FinalDir  string

	Artifacts []Artifact
}

// Artifact is a bundle written by one of the bundling steps. Path is
// relative to the release directory.
type Artifact struct {
	Name     string
	Path     string
	Bytes    int
	Analysis *bundler.Analysis
}

// NewContext creates the context for a run rooted at root.
func NewContext(root, runID string) *Context {
	return &Context{Root: root, RunID: runID}
}

// Out joins elem onto the current output directory.
func (c *Context) Out(elem ...string) string {
	return filepath.Join(append([]string{c.OutputDir}, elem...)...)
}

// Staged reports whether output is going to a staging directory.
func (c *Context) Staged() bool {
	return c.OutputDir != "" && c.OutputDir != c.FinalDir
}
