// Package workspace resolves the source, dictionary and output directories a
// run works in.
package workspace

import (
	"errors"
	"os"
	"path/filepath"

	"redcapprep/internal/domain"
)

// PathSpec holds the user-supplied path fragments. Empty optional fragments
// are skipped when joining.
type PathSpec struct {
	ProjectDir   string `yaml:"project"`
	DataDir      string `yaml:"data"`
	DataSubdir   string `yaml:"data_subdir"`
	DictDir      string `yaml:"dictionaries"`
	OutputDir    string `yaml:"output"`
	OutputSubdir string `yaml:"output_subdir"`
}

// Complete reports whether the spec can be resolved without asking the user.
func (p PathSpec) Complete() bool {
	return p.ProjectDir != ""
}

// Paths are the three resolved working directories.
type Paths struct {
	Source     string
	Output     string
	Dictionary string
}

// Resolve joins the fragments under the real project path, checks that the
// source directory exists and creates the output directory when absent.
// The dictionary directory is not checked here.
func Resolve(spec PathSpec) (*Paths, error) {
	project, err := realPath(spec.ProjectDir)
	if err != nil {
		return nil, err
	}

	source := filepath.Join(project, spec.DataDir, spec.DataSubdir)
	p := &Paths{
		Source:     source,
		Dictionary: filepath.Join(source, spec.DictDir),
		Output:     filepath.Join(project, spec.OutputDir, spec.OutputSubdir),
	}

	if !isDir(p.Source) {
		return nil, domain.NewNotFound("source path", p.Source)
	}
	if !isDir(p.Output) {
		if err := os.MkdirAll(p.Output, 0o755); err != nil {
			return nil, domain.NewIO("mkdir", p.Output, err)
		}
	}
	return p, nil
}

func realPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", domain.NewIO("resolve", dir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Leave it to the source check to report.
			return abs, nil
		}
		return "", domain.NewIO("resolve", dir, err)
	}
	return resolved, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
