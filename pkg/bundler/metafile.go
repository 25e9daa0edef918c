package bundler

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// Metafile is the subset of esbuild's metafile JSON that we report on.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput is one source file seen by the bundler.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
}

// MetafileImport is one import edge.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput is one generated file.
type MetafileOutput struct {
	Bytes  int                     `json:"bytes"`
	Inputs map[string]InputContrib `json:"inputs"`
}

// InputContrib is how much of an input ended up in an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Analysis summarizes a bundle for logging.
type Analysis struct {
	Name       string
	TotalBytes int
	Inputs     []InputFile
	Globals    []string
}

// InputFile is one module that contributed to the bundle.
type InputFile struct {
	Path          string
	Bytes         int
	BytesInOutput int
}

// Size renders TotalBytes for humans.
func (a *Analysis) Size() string {
	return humanize.Bytes(uint64(a.TotalBytes))
}

// Largest returns up to n inputs ordered by their contribution to the output.
func (a *Analysis) Largest(n int) []InputFile {
	inputs := append([]InputFile(nil), a.Inputs...)
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].BytesInOutput > inputs[j].BytesInOutput
	})
	if n < len(inputs) {
		inputs = inputs[:n]
	}
	return inputs
}

// Analyze parses an esbuild metafile.
func Analyze(metafile string) (*Analysis, error) {
	analysis := &Analysis{}
	if metafile == "" {
		return analysis, nil
	}

	var meta Metafile
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}

	contrib := make(map[string]int)
	for _, out := range meta.Outputs {
		analysis.TotalBytes += out.Bytes
		for path, in := range out.Inputs {
			contrib[path] += in.BytesInOutput
		}
	}

	globals := make(map[string]bool)
	for path, in := range meta.Inputs {
		if ns, name, ok := splitNamespace(path); ok {
			if ns == globalsNamespace {
				globals[name] = true
			}
			continue
		}
		analysis.Inputs = append(analysis.Inputs, InputFile{
			Path:          path,
			Bytes:         in.Bytes,
			BytesInOutput: contrib[path],
		})
	}
	sort.Slice(analysis.Inputs, func(i, j int) bool {
		return analysis.Inputs[i].Path < analysis.Inputs[j].Path
	})

	for g := range globals {
		analysis.Globals = append(analysis.Globals, g)
	}
	sort.Strings(analysis.Globals)

	return analysis, nil
}

// splitNamespace splits esbuild's "namespace:path" input keys.
func splitNamespace(key string) (ns, path string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			if i == 1 {
				// Windows drive letter.
				return "", "", false
			}
			return key[:i], key[i+1:], true
		}
		if key[i] == '/' || key[i] == '\\' {
			return "", "", false
		}
	}
	return "", "", false
}
