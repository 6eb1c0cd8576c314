package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcapprep/internal/workspace"
)

func prompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompter(strings.NewReader(input), &out), &out
}

func TestAskPlan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Plan
	}{
		{"no dictionaries", "n\n", Plan{Templates: true}},
		{"process only", "y\nn\n", Plan{Process: true}},
		{"process and regenerate", " Y \ny\n", Plan{Templates: true, Process: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := prompter(tt.input)
			got, err := p.AskPlan()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskYesNo_RepeatsOnInvalidEntry(t *testing.T) {
	p, out := prompter("maybe\n\nyes\nN\n")
	got, err := p.AskYesNo("Continue?")
	require.NoError(t, err)
	assert.False(t, got)
	assert.Equal(t, 3, strings.Count(out.String(), InvalidEntry))
	assert.Equal(t, 4, strings.Count(out.String(), "Continue? [y/n]: "))
}

func TestAskYesNo_EOF(t *testing.T) {
	p, _ := prompter("")
	_, err := p.AskYesNo("Continue?")
	assert.ErrorIs(t, err, io.EOF)
}

func TestAskPaths(t *testing.T) {
	p, out := prompter("/srv/study\ndata\n\ncompleted\nout\nredcap")
	spec, err := p.AskPaths()
	require.NoError(t, err)
	assert.Equal(t, workspace.PathSpec{
		ProjectDir:   "/srv/study",
		DataDir:      "data",
		DictDir:      "completed",
		OutputDir:    "out",
		OutputSubdir: "redcap",
	}, spec)
	assert.Contains(t, out.String(), "Enter Main Project Path: ")
	assert.Contains(t, out.String(), "Enter Any Specific Subdirectory for Output Files (optional): ")
}

func TestResolvePaths_SkipsPromptsWhenComplete(t *testing.T) {
	p, out := prompter("")
	spec := workspace.PathSpec{ProjectDir: "/srv/study", DataDir: "data"}
	got, err := p.ResolvePaths(spec)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
	assert.Empty(t, out.String())
}
