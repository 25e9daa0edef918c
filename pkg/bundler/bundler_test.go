package bundler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lngkit/sparkrelease/pkg/bundler"
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

func TestEsbuild_BundleIIFE(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "src", "App.js"), `
import { greet } from "./greet.js";
export default function App() { return greet("spark"); }
`)
	writeFile(t, filepath.Join(tmp, "src", "greet.js"), `
export function greet(name) { return "hello " + name; }
`)

	b := bundler.NewEsbuild(tmp)
	res, err := b.Bundle(context.Background(), bundler.Options{
		Entry:      "src/App.js",
		Outfile:    "dist/appBundle.js",
		GlobalName: "appBundle",
	})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	code := string(res.Code)
	if !strings.Contains(code, "var appBundle") {
		t.Errorf("expected global assignment, got:\n%s", code)
	}
	if !strings.Contains(code, "hello ") {
		t.Errorf("expected inlined dependency, got:\n%s", code)
	}
	if res.Analysis == nil || len(res.Analysis.Inputs) != 2 {
		t.Fatalf("expected 2 inputs in analysis, got %#v", res.Analysis)
	}
	if res.Analysis.TotalBytes == 0 || res.Analysis.Size() == "" {
		t.Error("expected non-zero bundle size")
	}
}

func TestEsbuild_ExternalsAndBanner(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "spark", "start.mjs"), `
import fetch from "node-fetch";
import lng from "wpe-lightning-spark";
import ux from "./src/ux.mjs";
import appBundle from "./src/app.mjs";
ux.start(appBundle, lng, fetch);
`)

	banner := "eval.call(null, 'ux');\neval.call(null, 'app');\n"
	b := bundler.NewEsbuild(tmp)
	res, err := b.Bundle(context.Background(), bundler.Options{
		Entry:   "spark/start.mjs",
		Outfile: "start.js",
		Externals: []bundler.External{
			{Specifier: "node-fetch", Global: "fetch"},
			{Specifier: "wpe-lightning-spark", Global: "lng"},
			{Specifier: "./src/ux.mjs", Global: "ux"},
			{Specifier: "./src/app.mjs", Global: "appBundle"},
		},
		Banner: banner,
	})
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	code := string(res.Code)
	if !strings.HasPrefix(code, "eval.call(null, 'ux');\neval.call(null, 'app');\n") {
		t.Errorf("expected banner at top, got:\n%s", code)
	}
	for _, global := range []string{"fetch", "lng", "ux", "appBundle"} {
		if !strings.Contains(code, "module.exports = "+global+";") {
			t.Errorf("expected %s to be read from a global, got:\n%s", global, code)
		}
	}

	want := []string{"appBundle", "fetch", "lng", "ux"}
	if strings.Join(res.Analysis.Globals, ",") != strings.Join(want, ",") {
		t.Errorf("globals = %v, want %v", res.Analysis.Globals, want)
	}
}

func TestEsbuild_SyntaxError(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "src", "App.js"), "export const = ;\n")

	b := bundler.NewEsbuild(tmp)
	_, err := b.Bundle(context.Background(), bundler.Options{
		Entry:      "src/App.js",
		Outfile:    "appBundle.js",
		GlobalName: "appBundle",
	})
	if !errors.Is(err, bundler.ErrBundle) {
		t.Fatalf("expected ErrBundle, got %v", err)
	}

	var bErr *bundler.Error
	if !errors.As(err, &bErr) || len(bErr.Messages) == 0 {
		t.Fatalf("expected diagnostics, got %#v", err)
	}
	if !strings.Contains(bErr.Messages[0], "App.js") {
		t.Errorf("expected file location in %q", bErr.Messages[0])
	}
}

func TestEsbuild_MissingEntry(t *testing.T) {
	b := bundler.NewEsbuild(t.TempDir())
	_, err := b.Bundle(context.Background(), bundler.Options{Entry: "src/App.js", Outfile: "a.js"})
	if !errors.Is(err, bundler.ErrBundle) {
		t.Fatalf("expected ErrBundle, got %v", err)
	}
}

func TestEsbuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := bundler.NewEsbuild(t.TempDir())
	_, err := b.Bundle(ctx, bundler.Options{Entry: "src/App.js"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	meta := `{
  "inputs": {
    "src/a.js": {"bytes": 100, "imports": []},
    "src/b.js": {"bytes": 50, "imports": []},
    "sparkrelease-global:lng": {"bytes": 20, "imports": []}
  },
  "outputs": {
    "out.js": {"bytes": 2048, "inputs": {"src/a.js": {"bytesInOutput": 80}, "src/b.js": {"bytesInOutput": 120}}}
  }
}`
	a, err := bundler.Analyze(meta)
	if err != nil {
		t.Fatal(err)
	}
	if a.TotalBytes != 2048 {
		t.Errorf("TotalBytes = %d", a.TotalBytes)
	}
	if a.Size() != "2.0 kB" {
		t.Errorf("Size = %q", a.Size())
	}
	if len(a.Globals) != 1 || a.Globals[0] != "lng" {
		t.Errorf("Globals = %v", a.Globals)
	}
	top := a.Largest(1)
	if len(top) != 1 || top[0].Path != "src/b.js" {
		t.Errorf("Largest = %v", top)
	}

	if _, err := bundler.Analyze("{"); err == nil {
		t.Error("expected parse error")
	}
}
