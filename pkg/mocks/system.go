// Package mocks provides test doubles for the release pipeline's collaborators.
package mocks

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/lngkit/sparkrelease/pkg/sysops"
)

// MemSystem is an in-memory sysops.System. Paths are slash-separated and
// treated as absolute.
type MemSystem struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	ops     []string
	fail    map[string]error
	tempSeq int

	// RunFunc handles Run; nil means every command succeeds silently.
	RunFunc func(ctx context.Context, m *MemSystem, cmd sysops.Command) (string, error)
}

var _ sysops.System = (*MemSystem)(nil)

// NewMemSystem creates an empty in-memory filesystem
func NewMemSystem() *MemSystem {
	return &MemSystem{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
		fail:  make(map[string]error),
	}
}

// Fail makes the next operation op ("cp -r", "cp", "mkdir -p", "rm -rf",
// "mv", "write", "mktemp -d") on p return err.
func (m *MemSystem) Fail(op, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op+" "+clean(p)] = err
}

// Ops returns every mutating operation performed, in order.
func (m *MemSystem) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// AddFile seeds a file, creating its parent directories.
func (m *MemSystem) AddFile(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	m.mkdirLocked(path.Dir(p))
	m.files[p] = []byte(content)
}

// AddDir seeds an empty directory.
func (m *MemSystem) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(clean(p))
}

// File returns a file's content and whether it exists.
func (m *MemSystem) File(p string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[clean(p)]
	return string(data), ok
}

// Tree lists every file below root, relative to root, sorted.
func (m *MemSystem) Tree(root string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	root = clean(root)
	var out []string
	for p := range m.files {
		if rel, ok := under(root, p); ok && rel != "" {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

// CopyTree copies a directory recursively
func (m *MemSystem) CopyTree(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = clean(src), clean(dst)
	if err := m.record("cp -r", src, src+" "+dst); err != nil {
		return err
	}
	if !m.dirs[src] {
		return &sysops.CommandError{Op: "cp -r", Args: []string{src, dst}, Err: fs.ErrNotExist}
	}

	var dirs []string
	for d := range m.dirs {
		if rel, ok := under(src, d); ok {
			dirs = append(dirs, path.Join(dst, rel))
		}
	}
	files := make(map[string][]byte)
	for f, data := range m.files {
		if rel, ok := under(src, f); ok {
			files[path.Join(dst, rel)] = append([]byte(nil), data...)
		}
	}

	m.mkdirLocked(dst)
	for _, d := range dirs {
		m.mkdirLocked(d)
	}
	for f, data := range files {
		m.files[f] = data
	}
	return nil
}

// CopyFile copies a file from src to dst
func (m *MemSystem) CopyFile(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = clean(src), clean(dst)
	if err := m.record("cp", src, src+" "+dst); err != nil {
		return err
	}
	data, ok := m.files[src]
	if !ok {
		return &sysops.CommandError{Op: "cp", Args: []string{src, dst}, Err: fs.ErrNotExist}
	}
	m.mkdirLocked(path.Dir(dst))
	m.files[dst] = append([]byte(nil), data...)
	return nil
}

// MakeDir creates a directory with all parents
func (m *MemSystem) MakeDir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if err := m.record("mkdir -p", p, p); err != nil {
		return err
	}
	m.mkdirLocked(p)
	return nil
}

// RemoveTree removes a path and everything below it
func (m *MemSystem) RemoveTree(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if err := m.record("rm -rf", p, p); err != nil {
		return err
	}
	for d := range m.dirs {
		if _, ok := under(p, d); ok {
			delete(m.dirs, d)
		}
	}
	for f := range m.files {
		if _, ok := under(p, f); ok {
			delete(m.files, f)
		}
	}
	return nil
}

// Rename moves a file or directory tree
func (m *MemSystem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath, newPath = clean(oldPath), clean(newPath)
	if err := m.record("mv", oldPath, oldPath+" "+newPath); err != nil {
		return err
	}
	if !m.dirs[oldPath] && m.files[oldPath] == nil {
		return &sysops.CommandError{Op: "mv", Args: []string{oldPath, newPath}, Err: fs.ErrNotExist}
	}

	moved := make(map[string][]byte)
	var dirs []string
	for d := range m.dirs {
		if rel, ok := under(oldPath, d); ok {
			delete(m.dirs, d)
			dirs = append(dirs, path.Join(newPath, rel))
		}
	}
	for f, data := range m.files {
		if rel, ok := under(oldPath, f); ok {
			delete(m.files, f)
			moved[path.Join(newPath, rel)] = data
		}
	}

	m.mkdirLocked(path.Dir(newPath))
	for _, d := range dirs {
		m.mkdirLocked(d)
	}
	for f, data := range moved {
		m.files[f] = data
	}
	return nil
}

// Exists checks if a path exists
func (m *MemSystem) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	_, isFile := m.files[p]
	return isFile || m.dirs[p]
}

// ReadFile reads a file
func (m *MemSystem) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[clean(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// WriteFile writes a file, creating parents
func (m *MemSystem) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if err := m.record("write", p, p); err != nil {
		return err
	}
	m.mkdirLocked(path.Dir(p))
	m.files[p] = append([]byte(nil), data...)
	return nil
}

// TempDir creates /tmp/<pattern><n>
func (m *MemSystem) TempDir(pattern string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempSeq++
	dir := fmt.Sprintf("/tmp/%s%d", pattern, m.tempSeq)
	if err := m.record("mktemp -d", "/tmp", dir); err != nil {
		return "", err
	}
	m.mkdirLocked(dir)
	return dir, nil
}

// Run records the command and delegates to RunFunc.
func (m *MemSystem) Run(ctx context.Context, cmd sysops.Command) (string, error) {
	m.mu.Lock()
	m.ops = append(m.ops, "run "+cmd.String())
	fn := m.RunFunc
	m.mu.Unlock()

	if fn == nil {
		return "", nil
	}
	return fn(ctx, m, cmd)
}

func (m *MemSystem) record(op, p, desc string) error {
	m.ops = append(m.ops, op+" "+desc)
	if err, ok := m.fail[op+" "+p]; ok {
		delete(m.fail, op+" "+p)
		return &sysops.CommandError{Op: op, Args: strings.Fields(desc), Err: err}
	}
	return nil
}

func (m *MemSystem) mkdirLocked(p string) {
	for p != "/" && p != "." && !m.dirs[p] {
		m.dirs[p] = true
		p = path.Dir(p)
	}
}

func clean(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// under reports whether p is root or below it, returning the relative part.
func under(root, p string) (string, bool) {
	if p == root {
		return "", true
	}
	prefix := root
	if prefix != "/" {
		prefix += "/"
	}
	if strings.HasPrefix(p, prefix) {
		return strings.TrimPrefix(p, prefix), true
	}
	return "", false
}
