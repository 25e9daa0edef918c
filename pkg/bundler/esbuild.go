package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const globalsNamespace = "sparkrelease-global"

// Esbuild bundles with the in-process esbuild API.
type Esbuild struct {
	// WorkDir anchors relative entry paths and metafile paths.
	WorkDir string
}

var _ Bundler = (*Esbuild)(nil)

// NewEsbuild creates an esbuild-backed bundler rooted at workDir.
func NewEsbuild(workDir string) *Esbuild {
	return &Esbuild{WorkDir: workDir}
}

// Bundle builds opts.Entry into an IIFE.
func (e *Esbuild) Bundle(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Entry: opts.Entry, Err: err}
	}

	workDir, err := filepath.Abs(e.WorkDir)
	if err != nil {
		return nil, &Error{Entry: opts.Entry, Err: err}
	}
	entry := opts.Entry
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(workDir, entry)
	}

	build := api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: workDir,
		Bundle:        true,
		Format:        api.FormatIIFE,
		GlobalName:    opts.GlobalName,
		Outfile:       opts.Outfile,
		Write:         false,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		Charset:       api.CharsetUTF8,
	}
	if opts.Banner != "" {
		build.Banner = map[string]string{"js": strings.TrimRight(opts.Banner, "\n")}
	}
	if len(opts.Externals) > 0 {
		build.Plugins = []api.Plugin{globalsPlugin(filepath.Dir(entry), opts.Externals)}
	}

	result := api.Build(build)
	if len(result.Errors) > 0 {
		return nil, &Error{
			Entry:    opts.Entry,
			Messages: formatMessages(result.Errors),
			Err:      ErrBundle,
		}
	}
	if len(result.OutputFiles) == 0 {
		return nil, &Error{Entry: opts.Entry, Err: fmt.Errorf("bundler produced no output")}
	}

	analysis, err := Analyze(result.Metafile)
	if err != nil {
		return nil, &Error{Entry: opts.Entry, Err: err}
	}
	analysis.Name = opts.GlobalName

	return &Result{
		Code:     result.OutputFiles[0].Contents,
		Analysis: analysis,
	}, nil
}

// globalsPlugin rewrites imports of the given externals into modules whose
// value is the named global, so an IIFE can consume host-provided values.
func globalsPlugin(entryDir string, externals []External) api.Plugin {
	bySpecifier := make(map[string]string, len(externals))
	quoted := make([]string, 0, len(externals))
	for _, ext := range externals {
		bySpecifier[ext.Specifier] = ext.Global
		quoted = append(quoted, regexp.QuoteMeta(ext.Specifier))
	}
	filter := "^(" + strings.Join(quoted, "|") + ")$"

	return api.Plugin{
		Name: "globals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					global, ok := bySpecifier[args.Path]
					if !ok || args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{}, nil
					}
					if isRelative(args.Path) &&
						filepath.Join(args.ResolveDir, args.Path) != filepath.Join(entryDir, args.Path) {
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{Path: global, Namespace: globalsNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: globalsNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := "module.exports = " + args.Path + ";"
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func isRelative(p string) bool {
	return strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
