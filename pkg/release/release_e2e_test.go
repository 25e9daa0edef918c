package release_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/lngkit/sparkrelease/pkg/bundler"
	"github.com/lngkit/sparkrelease/pkg/config"
	"github.com/lngkit/sparkrelease/pkg/logger"
	"github.com/lngkit/sparkrelease/pkg/release"
	"github.com/lngkit/sparkrelease/pkg/sysops"
	"github.com/lngkit/sparkrelease/pkg/transpiler"
)

// offlineSystem is the local filesystem with the package installer replaced
// by a copy of a pre-built spark bundle.
type offlineSystem struct {
	sysops.System
	sparkBundle string
	tempDirs    []string
}

func (s *offlineSystem) TempDir(pattern string) (string, error) {
	dir, err := s.System.TempDir(pattern)
	if err == nil {
		s.tempDirs = append(s.tempDirs, dir)
	}
	return dir, err
}

func (s *offlineSystem) Run(ctx context.Context, cmd sysops.Command) (string, error) {
	if cmd.Name != "npm" {
		return s.System.Run(ctx, cmd)
	}
	dir := cmd.Args[len(cmd.Args)-1]
	dst := filepath.Join(dir, "node_modules", "wpe-lightning-spark", "dist", "lightning-spark.js")
	return "", s.System.WriteFile(dst, []byte(s.sparkBundle))
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func projectFiles() map[string]string {
	sdk := "node_modules/wpe-lightning-sdk/"
	return map[string]string{
		"metadata.json": `{"identifier":"com.example.app","version":"1.0.0"}`,
		"src/App.js": `import { greeting } from "./greeting.js";
export default class App {
  constructor(options) { this.text = options?.text ?? greeting; }
}
`,
		"src/greeting.js":                                  `export const greeting = "hello";`,
		"static/images/logo.png":                           "png",
		"node_modules/wpe-lightning/dist/lightning-web.js": `var lng = (function () { const opts = globalThis.lngOptions ?? {}; return { Application: opts?.app }; })();`,
		sdk + "dist/web/index.html":                        "<html>web</html>",
		sdk + "dist/web-spark/index.html":                  "<html>spark</html>",
		sdk + "static-ux/fonts/roboto.ttf":                 "font",
		sdk + "js/src/ux.js":                               `export const version = "1.0"; export const start = (app) => new app();`,
		sdk + "dist/spark/start.mjs": `import fetch from "node-fetch";
import lng from "wpe-lightning-spark";
import ux from "./src/ux.mjs";
import appBundle from "./src/app.mjs";
ux.start(appBundle.default, lng, fetch);
`,
	}
}

func treeContents(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return files
}

func newLocalRelease(t *testing.T, root string, log logger.Logger) (*release.Release, *offlineSystem) {
	t.Helper()
	sys := &offlineSystem{
		System:      sysops.NewLocal(log),
		sparkBundle: "var lngSpark = {};",
	}
	tp, err := transpiler.New(transpiler.Options{Engine: transpiler.EngineEsbuild, Target: "es2015"}, sys)
	if err != nil {
		t.Fatal(err)
	}
	r, err := release.New(config.Default(), root, release.Dependencies{
		System:     sys,
		Bundler:    bundler.NewEsbuild(root),
		Transpiler: tp,
		Logger:     log,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r, sys
}

func TestRelease_EndToEnd(t *testing.T) {
	root := writeProject(t, projectFiles())
	var logs bytes.Buffer
	r, sys := newLocalRelease(t, root, logger.CreateLoggerWithOutput("debug", &logs))

	rc, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, logs.String())
	}

	out := filepath.Join(root, "dist", "web-spark")
	if rc.OutputDir != out {
		t.Errorf("OutputDir = %q, want %q", rc.OutputDir, out)
	}

	files := treeContents(t, out)
	var names []string
	for name := range files {
		names = append(names, name)
	}
	want := []string{
		"index.html",
		"js/src.es5/appBundle.js",
		"js/src.es5/lightning-web.js",
		"js/src.es5/ux.js",
		"js/src/appBundle.js",
		"js/src/lightning-web.js",
		"js/src/ux.js",
		"metadata.json",
		"spark/lightning-spark.js",
		"start.js",
		"static-ux/fonts/roboto.ttf",
		"static/images/logo.png",
	}
	sort.Strings(names)
	if !reflect.DeepEqual(names, want) {
		t.Errorf("output files:\n got %v\nwant %v", names, want)
	}

	if files["metadata.json"] != projectFiles()["metadata.json"] {
		t.Errorf("metadata.json not copied verbatim")
	}
	if files["index.html"] != "<html>spark</html>" {
		t.Errorf("index.html = %q", files["index.html"])
	}

	app := files["js/src/appBundle.js"]
	if !strings.Contains(app, "var appBundle = ") || !strings.Contains(app, `"hello"`) {
		t.Errorf("appBundle.js is not an IIFE bundle of the app:\n%s", app)
	}
	for _, name := range []string{"appBundle.js", "lightning-web.js"} {
		lowered := files["js/src.es5/"+name]
		if lowered == "" || strings.Contains(lowered, "?.") || strings.Contains(lowered, "??") {
			t.Errorf("%s was not lowered:\n%s", name, lowered)
		}
	}

	start := files["start.js"]
	if !strings.HasPrefix(start, release.SparkBanner) {
		t.Errorf("start.js should begin with the loader banner:\n%s", start)
	}
	for _, global := range []string{"fetch", "lng", "ux", "appBundle"} {
		if !strings.Contains(start, "module.exports = "+global+";") {
			t.Errorf("start.js should read %s from a global", global)
		}
	}

	for _, dir := range sys.tempDirs {
		if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("temp dir %s not removed", dir)
		}
	}

	for _, line := range []string{"EXECUTE: rm -rf " + out, "EXECUTE: mkdir -p " + filepath.Join(root, "dist")} {
		if !strings.Contains(logs.String(), line) {
			t.Errorf("log missing %q", line)
		}
	}
}

func TestRelease_EndToEndIsReproducible(t *testing.T) {
	root := writeProject(t, projectFiles())
	r, _ := newLocalRelease(t, root, nil)
	out := filepath.Join(root, "dist", "web-spark")

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := treeContents(t, out)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second := treeContents(t, out); !reflect.DeepEqual(first, second) {
		t.Error("second run produced a different tree")
	}
}

func TestRelease_EndToEndBundleError(t *testing.T) {
	files := projectFiles()
	files["src/App.js"] = "export default class {\n"
	root := writeProject(t, files)
	r, _ := newLocalRelease(t, root, nil)

	_, err := r.Run(context.Background())
	if !errors.Is(err, release.ErrBundling) {
		t.Fatalf("expected ErrBundling, got %v", err)
	}
	out := filepath.Join(root, "dist", "web-spark")
	if _, err := os.Stat(filepath.Join(out, "start.js")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("start.js should not exist")
	}
	if _, err := os.Stat(filepath.Join(out, "js", "src.es5", "appBundle.js")); !errors.Is(err, fs.ErrNotExist) {
		t.Error("transpile should not have run")
	}
}
