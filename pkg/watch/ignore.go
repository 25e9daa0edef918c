package watch

import (
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreMatcher matches paths against glob patterns. "**" crosses directory
// boundaries; a pattern without a slash matches at any depth.
type IgnoreMatcher struct {
	regexps []*regexp.Regexp
}

// NewIgnoreMatcher compiles patterns
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{regexps: make([]*regexp.Regexp, 0, len(patterns))}
	for _, pattern := range patterns {
		pattern = normalizePattern(pattern)
		if pattern == "" {
			continue
		}
		if !strings.Contains(pattern, "/") {
			pattern = "**/" + pattern
		}
		re, err := globToRegex(pattern)
		if err != nil {
			return nil, err
		}
		m.regexps = append(m.regexps, re)
	}
	return m, nil
}

// Match reports whether path matches any pattern
func (m *IgnoreMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, re := range m.regexps {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func normalizePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	pattern = strings.TrimPrefix(pattern, "./")
	return strings.TrimSuffix(pattern, "/")
}

// globToRegex converts a glob pattern to an anchored regular expression
func globToRegex(pattern string) (*regexp.Regexp, error) {
	var regex strings.Builder
	regex.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch pattern[i] {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** matches any number of directories
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					regex.WriteString("(.*/)?")
					i += 3
				} else {
					regex.WriteString(".*")
					i += 2
				}
			} else {
				regex.WriteString("[^/]*")
				i++
			}
		case '?':
			regex.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			var class strings.Builder
			if j < len(pattern) && pattern[j] == '!' {
				class.WriteString("[^")
				j++
			} else {
				class.WriteString("[")
			}
			for j < len(pattern) && pattern[j] != ']' {
				class.WriteByte(pattern[j])
				j++
			}
			if j < len(pattern) {
				class.WriteByte(']')
				regex.WriteString(class.String())
				i = j + 1
			} else {
				// Unclosed bracket, treat as literal
				regex.WriteString(`\[`)
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|', '\\':
			regex.WriteByte('\\')
			regex.WriteByte(pattern[i])
			i++
		default:
			regex.WriteByte(pattern[i])
			i++
		}
	}

	regex.WriteString("$")
	return regexp.Compile(regex.String())
}
