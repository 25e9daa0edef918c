package release_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	rcontext "github.com/lngkit/sparkrelease/pkg/context"
	"github.com/lngkit/sparkrelease/pkg/release"
)

func TestPipeline_RunsInOrderAndStops(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	step := func(name string, err error) release.Step {
		return release.Step{Name: name, Run: func(ctx context.Context, rc *release.Context) error {
			if got := rcontext.GetStage(ctx); got != name {
				t.Errorf("stage in context = %q, want %q", got, name)
			}
			ran = append(ran, name)
			return err
		}}
	}

	p := release.NewPipeline(nil, step("one", nil), step("two", boom), step("three", nil))
	if got := p.Steps(); !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Errorf("Steps() = %v", got)
	}

	err := p.Run(context.Background(), release.NewContext("/project", "run_test"))
	if !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want wrapped boom", err)
	}
	if !strings.HasPrefix(err.Error(), "two: ") {
		t.Errorf("error %q should name the failed step", err)
	}
	if !reflect.DeepEqual(ran, []string{"one", "two"}) {
		t.Errorf("ran = %v", ran)
	}
}

func TestPipeline_Requirements(t *testing.T) {
	tests := []struct {
		name    string
		needs   release.Requirement
		rc      *release.Context
		wantErr error
	}{
		{"no needs", 0, &release.Context{}, nil},
		{"identifier missing", release.NeedsIdentifier, &release.Context{}, release.ErrConfig},
		{"identifier set", release.NeedsIdentifier, &release.Context{Identifier: "a"}, nil},
		{"output missing", release.NeedsOutput, &release.Context{Identifier: "a"}, release.ErrOutputNotPrepared},
		{"output set", release.NeedsIdentifier | release.NeedsOutput, &release.Context{Identifier: "a", OutputDir: "/out"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			p := release.NewPipeline(nil, release.Step{
				Name:  "guarded",
				Needs: tt.needs,
				Run: func(context.Context, *release.Context) error {
					called = true
					return nil
				},
			})

			err := p.Run(context.Background(), tt.rc)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				if !called {
					t.Error("step was not called")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if called {
				t.Error("step ran without its requirements")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if release.Describe(nil) != "" {
		t.Error("Describe(nil) should be empty")
	}

	cmdErr := &release.ShellCommandError{Op: "npm", Args: []string{"install"}, Output: "npm ERR! 404\n", Err: errors.New("exit status 1")}
	got := release.Describe(errors.Join(errors.New("fetch-spark"), cmdErr))
	if !strings.HasSuffix(got, "\nnpm ERR! 404") {
		t.Errorf("Describe() = %q", got)
	}

	cfgErr := &release.ConfigError{Hint: "can't find identifier in metadata.json file"}
	if cfgErr.Error() != "can't find identifier in metadata.json file" {
		t.Errorf("Error() = %q", cfgErr.Error())
	}
	var target *release.ConfigError
	if !errors.As(errors.Join(cfgErr), &target) || !errors.Is(cfgErr, release.ErrConfig) {
		t.Error("ConfigError should match with errors.As and errors.Is")
	}
}
