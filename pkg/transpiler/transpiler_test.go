package transpiler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/lngkit/sparkrelease/pkg/sysops"
	"github.com/lngkit/sparkrelease/pkg/transpiler"
)

func TestEsbuild_LowersArrowsAndTemplates(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src", "ux.js")
	dst := filepath.Join(tmp, "src.es5", "ux.js")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	code := "var ux = (function () { var add = (a, b) => `${a}-${b}`; return { add: add }; })();\n"
	if err := os.WriteFile(src, []byte(code), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := transpiler.New(transpiler.Options{Engine: "esbuild", Target: "es5"}, sysops.NewLocal(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Transpile(context.Background(), src, dst); err != nil {
		t.Fatalf("Transpile: %v", err)
	}

	out, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "=>") || strings.Contains(string(out), "`") {
		t.Errorf("expected lowered output, got:\n%s", out)
	}
	if !strings.Contains(string(out), "function") {
		t.Errorf("expected function expression, got:\n%s", out)
	}
}

func TestEsbuild_UnsupportedSyntaxFails(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "a.js")
	if err := os.WriteFile(src, []byte("const x = 1;\nlet y = x;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := transpiler.New(transpiler.Options{Target: "es5"}, sysops.NewLocal(nil))
	if err != nil {
		t.Fatal(err)
	}
	err = tr.Transpile(context.Background(), src, filepath.Join(tmp, "out.js"))
	if !errors.Is(err, transpiler.ErrTranspile) {
		t.Fatalf("expected ErrTranspile, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(tmp, "out.js")); !os.IsNotExist(statErr) {
		t.Error("expected no output on failure")
	}
}

func TestEsbuild_MissingSource(t *testing.T) {
	tmp := t.TempDir()
	tr := transpiler.NewEsbuild(0, sysops.NewLocal(nil))

	err := tr.Transpile(context.Background(), filepath.Join(tmp, "missing.js"), filepath.Join(tmp, "out.js"))
	var tErr *transpiler.Error
	if !errors.As(err, &tErr) || !strings.HasSuffix(tErr.File, "missing.js") {
		t.Fatalf("expected transpiler.Error for missing.js, got %v", err)
	}
}

func TestCommand_RunsTemplate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires cp")
	}
	tmp := t.TempDir()
	src := filepath.Join(tmp, "a.js")
	dst := filepath.Join(tmp, "b.js")
	if err := os.WriteFile(src, []byte("var a;"), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := transpiler.New(transpiler.Options{Engine: "command", Command: "cp {src} {dst}"}, sysops.NewLocal(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Transpile(context.Background(), src, dst); err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "var a;" {
		t.Errorf("unexpected output %q", got)
	}

	err = tr.Transpile(context.Background(), filepath.Join(tmp, "missing.js"), dst)
	if !errors.Is(err, transpiler.ErrTranspile) || !errors.Is(err, sysops.ErrCommand) {
		t.Errorf("expected transpile and command errors, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    transpiler.Options
		wantErr bool
	}{
		{"default engine", transpiler.Options{}, false},
		{"esbuild es2015", transpiler.Options{Engine: "esbuild", Target: "ES2015"}, false},
		{"unknown target", transpiler.Options{Engine: "esbuild", Target: "es3"}, true},
		{"command without template", transpiler.Options{Engine: "command"}, true},
		{"unknown engine", transpiler.Options{Engine: "swc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transpiler.New(tt.opts, sysops.NewLocal(nil))
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
