// Package sysops abstracts the filesystem and process operations a release
// performs, so the pipeline can run against a real disk or a test double.
package sysops

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCommand is matched by every CommandError.
var ErrCommand = errors.New("command failed")

// System is the set of side effects the release pipeline needs.
type System interface {
	// CopyTree copies the directory src so its contents appear under dst,
	// merging into dst when it already exists.
	CopyTree(src, dst string) error
	// CopyFile copies a single file to the exact path dst.
	CopyFile(src, dst string) error
	MakeDir(path string) error
	RemoveTree(path string) error
	Rename(oldPath, newPath string) error
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	// TempDir creates a fresh, empty directory and returns its path.
	TempDir(pattern string) (string, error)
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, cmd Command) (string, error)
}

// Command describes a process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command the way it would be typed.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandError reports a failed filesystem or process operation together
// with whatever output it produced.
type CommandError struct {
	Op     string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	cmd := e.Op
	if len(e.Args) > 0 {
		cmd += " " + strings.Join(e.Args, " ")
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is matches ErrCommand.
func (e *CommandError) Is(target error) bool { return target == ErrCommand }

func opError(op string, err error, args ...string) error {
	if err == nil {
		return nil
	}
	return &CommandError{Op: op, Args: args, Err: err}
}
