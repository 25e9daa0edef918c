package sysops

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ParseCommand tokenizes a command template with shell quoting rules and
// replaces {name} placeholders in every token with vars[name].
func ParseCommand(template string, vars map[string]string) (Command, error) {
	words, err := shellwords.Parse(template)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", template, err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("parse command %q: empty command", template)
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	for i, w := range words {
		words[i] = r.Replace(w)
	}

	return Command{Name: words[0], Args: words[1:]}, nil
}
