// Package console runs the interactive prompt flow used by the run command.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"redcapprep/internal/workspace"
)

// InvalidEntry is printed when a yes/no answer is not recognised.
const InvalidEntry = "Not a valid entry, please try again"

// Plan is the action chosen by the user.
type Plan struct {
	Templates bool // regenerate header lists and dictionary templates
	Process   bool // remap sources through completed dictionaries
}

// Prompter reads answers from in and writes prompts to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the answer with surrounding space trimmed.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskYesNo repeats question until the answer is y or n, case-insensitively.
func (p *Prompter) AskYesNo(question string) (bool, error) {
	for {
		answer, err := p.Ask(question + " [y/n]")
		if err != nil {
			return false, err
		}
		switch strings.ToUpper(answer) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
		fmt.Fprintln(p.out, InvalidEntry)
	}
}

// AskPlan asks which batch operations to run. Without completed
// dictionaries only templates are generated.
func (p *Prompter) AskPlan() (Plan, error) {
	haveDicts, err := p.AskYesNo("Do you have completed Data Dictionaries?")
	if err != nil {
		return Plan{}, err
	}
	if !haveDicts {
		return Plan{Templates: true}, nil
	}
	regen, err := p.AskYesNo("Do you want to regenerate templates while processing?")
	if err != nil {
		return Plan{}, err
	}
	return Plan{Templates: regen, Process: true}, nil
}

// AskPaths asks for all six path fragments.
func (p *Prompter) AskPaths() (workspace.PathSpec, error) {
	var spec workspace.PathSpec
	prompts := []struct {
		question string
		dst      *string
	}{
		{"Enter Main Project Path", &spec.ProjectDir},
		{"Enter Path to Main Data Directory in Project", &spec.DataDir},
		{"Enter Specific Subdirectory of Data to Process (if needed)", &spec.DataSubdir},
		{"Enter Data Subdirectory For Completed Templates", &spec.DictDir},
		{"Enter Path to Desired Output File Directory in Project", &spec.OutputDir},
		{"Enter Any Specific Subdirectory for Output Files (optional)", &spec.OutputSubdir},
	}
	for _, q := range prompts {
		answer, err := p.Ask(q.question)
		if err != nil {
			return workspace.PathSpec{}, err
		}
		*q.dst = answer
	}
	return spec, nil
}

// ResolvePaths returns spec unchanged when it is complete, otherwise the
// answers to AskPaths.
func (p *Prompter) ResolvePaths(spec workspace.PathSpec) (workspace.PathSpec, error) {
	if spec.Complete() {
		return spec, nil
	}
	return p.AskPaths()
}
