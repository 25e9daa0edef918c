package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lngkit/sparkrelease/pkg/bundler"
	"github.com/lngkit/sparkrelease/pkg/sysops"
	"github.com/lngkit/sparkrelease/pkg/transpiler"
)

// Sentinel errors so callers can classify a failure with errors.Is.
var (
	// ErrConfig marks missing or unreadable project metadata.
	ErrConfig = errors.New("configuration error")

	// ErrShellCommand marks a failed filesystem or process operation.
	ErrShellCommand = sysops.ErrCommand

	// ErrBundling marks a module bundler failure.
	ErrBundling = bundler.ErrBundle

	// ErrTranspile marks a down-level transform failure.
	ErrTranspile = transpiler.ErrTranspile

	// ErrOutputNotPrepared marks a step that ran before the output
	// directory was set up.
	ErrOutputNotPrepared = errors.New("output directory has not been prepared")
)

// ConfigError reports a problem with the project's metadata file.
type ConfigError struct {
	Hint string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Hint
	}
	return fmt.Sprintf("%s: %v", e.Hint, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ShellCommandError is the filesystem/process failure type.
type ShellCommandError = sysops.CommandError

// BundlingError is the bundler failure type.
type BundlingError = bundler.Error

// TranspileError is the transform failure type.
type TranspileError = transpiler.Error

// Describe renders err for the terminal, appending captured command output
// or bundler messages when the error carries them.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(err.Error())

	var cmdErr *ShellCommandError
	if errors.As(err, &cmdErr) && strings.TrimSpace(cmdErr.Output) != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(cmdErr.Output, "\n"))
	}

	var bundleErr *BundlingError
	if errors.As(err, &bundleErr) {
		for _, msg := range bundleErr.Messages {
			b.WriteString("\n  ")
			b.WriteString(msg)
		}
	}

	return b.String()
}
