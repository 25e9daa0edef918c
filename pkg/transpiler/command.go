package transpiler

import (
	"context"

	"github.com/lngkit/sparkrelease/pkg/sysops"
)

// Command delegates the transform to an external tool such as babel.
type Command struct {
	template string
	sys      sysops.System
}

var _ Transpiler = (*Command)(nil)

// NewCommand creates a transpiler that runs template with {src} and {dst}
// substituted.
func NewCommand(template string, sys sysops.System) *Command {
	return &Command{template: template, sys: sys}
}

// Transpile runs the external tool for one file.
func (c *Command) Transpile(ctx context.Context, src, dst string) error {
	cmd, err := sysops.ParseCommand(c.template, map[string]string{"src": src, "dst": dst})
	if err != nil {
		return &Error{File: src, Err: err}
	}
	if _, err := c.sys.Run(ctx, cmd); err != nil {
		return &Error{File: src, Err: err}
	}
	return nil
}
