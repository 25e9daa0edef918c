package sysops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lngkit/sparkrelease/pkg/logger"
)

// Local performs operations on the real filesystem and spawns real processes.
type Local struct {
	log logger.Logger
}

var _ System = (*Local)(nil)

// NewLocal creates a Local system; log may be nil.
func NewLocal(log logger.Logger) *Local {
	if log == nil {
		log = logger.Discard()
	}
	return &Local{log: log}
}

// CopyTree copies a directory recursively
func (l *Local) CopyTree(src, dst string) error {
	l.log.Info(fmt.Sprintf("EXECUTE: cp -r %s %s", src, dst))

	info, err := os.Stat(src)
	if err != nil {
		return opError("cp -r", err, src, dst)
	}
	if !info.IsDir() {
		return opError("cp -r", fmt.Errorf("%s is not a directory", src), src, dst)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, fi.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
	return opError("cp -r", err, src, dst)
}

// CopyFile copies a file from src to dst, creating parent directories
func (l *Local) CopyFile(src, dst string) error {
	l.log.Info(fmt.Sprintf("EXECUTE: cp %s %s", src, dst))
	return opError("cp", copyFile(src, dst), src, dst)
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}
	if sourceInfo.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}

	return os.Chmod(dst, sourceInfo.Mode().Perm())
}

// MakeDir creates a directory with all parents
func (l *Local) MakeDir(path string) error {
	l.log.Info(fmt.Sprintf("EXECUTE: mkdir -p %s", path))
	return opError("mkdir -p", os.MkdirAll(path, 0755), path)
}

// RemoveTree removes a path and all its contents; a missing path is not an error
func (l *Local) RemoveTree(path string) error {
	l.log.Info(fmt.Sprintf("EXECUTE: rm -rf %s", path))
	return opError("rm -rf", os.RemoveAll(path), path)
}

// Rename moves oldPath to newPath
func (l *Local) Rename(oldPath, newPath string) error {
	l.log.Info(fmt.Sprintf("EXECUTE: mv %s %s", oldPath, newPath))
	return opError("mv", os.Rename(oldPath, newPath), oldPath, newPath)
}

// Exists checks if a path exists
func (l *Local) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads the entire file
func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating parent directories
func (l *Local) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return opError("write", err, path)
	}
	return opError("write", os.WriteFile(path, data, 0644), path)
}

// TempDir creates a directory under the system temp dir
func (l *Local) TempDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", opError("mktemp -d", err, pattern)
	}
	l.log.Info(fmt.Sprintf("EXECUTE: mkdir -p %s", dir))
	return dir, nil
}

// Run executes the command, capturing stdout and stderr together
func (l *Local) Run(ctx context.Context, c Command) (string, error) {
	l.log.Info("EXECUTE: " + c.String())

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	out := output.String()
	if err != nil {
		return out, &CommandError{Op: c.Name, Args: c.Args, Output: out, Err: err}
	}
	if out != "" {
		l.log.Debug("Command output", logger.WithField("output", out))
	}
	return out, nil
}
