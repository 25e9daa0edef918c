package sysops_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/lngkit/sparkrelease/pkg/sysops"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocal_CopyTreeMerges(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "dst")

	writeFile(t, filepath.Join(src, "index.html"), "<html>")
	writeFile(t, filepath.Join(src, "js", "a.js"), "a")
	writeFile(t, filepath.Join(dst, "keep.txt"), "keep")

	sys := sysops.NewLocal(nil)
	if err := sys.CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	for path, want := range map[string]string{
		"index.html": "<html>",
		"js/a.js":    "a",
		"keep.txt":   "keep",
	} {
		got, err := os.ReadFile(filepath.Join(dst, path))
		if err != nil {
			t.Errorf("read %s: %v", path, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestLocal_CopyTreeMissingSource(t *testing.T) {
	tmp := t.TempDir()
	sys := sysops.NewLocal(nil)

	err := sys.CopyTree(filepath.Join(tmp, "nope"), filepath.Join(tmp, "out"))
	if !errors.Is(err, sysops.ErrCommand) {
		t.Fatalf("expected ErrCommand, got %v", err)
	}

	var cmdErr *sysops.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Op != "cp -r" {
		t.Errorf("expected cp -r CommandError, got %#v", err)
	}
}

func TestLocal_CopyFileCreatesParents(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "lib.js")
	writeFile(t, src, "lib")

	sys := sysops.NewLocal(nil)
	dst := filepath.Join(tmp, "out", "js", "src", "lib.js")
	if err := sys.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "lib" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestLocal_RemoveTreeMissingIsNoop(t *testing.T) {
	sys := sysops.NewLocal(nil)
	if err := sys.RemoveTree(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Errorf("RemoveTree on missing path: %v", err)
	}
}

func TestLocal_TempDir(t *testing.T) {
	sys := sysops.NewLocal(nil)
	dir, err := sys.TempDir("sparkrelease-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if !sys.Exists(dir) {
		t.Error("expected temp dir to exist")
	}
}

func TestLocal_RunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	sys := sysops.NewLocal(nil)

	out, err := sys.Run(context.Background(), sysops.Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("output = %q", out)
	}

	out, err = sys.Run(context.Background(), sysops.Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	var cmdErr *sysops.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Output != "boom\n" || out != "boom\n" {
		t.Errorf("expected captured stderr, got %q", cmdErr.Output)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "npm install",
			template: "npm --prefix {dir} install {dir}",
			vars:     map[string]string{"dir": "/tmp/x"},
			wantName: "npm",
			wantArgs: []string{"--prefix", "/tmp/x", "install", "/tmp/x"},
		},
		{
			name:     "quoted token keeps spaces",
			template: `npx babel --presets "@babel/preset-env" {src} --out-file '{dst}'`,
			vars:     map[string]string{"src": "a b.js", "dst": "c.js"},
			wantName: "npx",
			wantArgs: []string{"babel", "--presets", "@babel/preset-env", "a b.js", "--out-file", "c.js"},
		},
		{
			name:     "empty",
			template: "   ",
			wantErr:  true,
		},
		{
			name:     "unterminated quote",
			template: `npm "install`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := sysops.ParseCommand(tt.template, tt.vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cmd.Name != tt.wantName {
				t.Errorf("name = %q, want %q", cmd.Name, tt.wantName)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %q, want %q", cmd.Args, tt.wantArgs)
			}
			for i := range cmd.Args {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}
