package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"redcapprep/internal/app"
	"redcapprep/internal/config"
	"redcapprep/internal/console"
	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
	"redcapprep/internal/logging"
	mcpserver "redcapprep/internal/mcp"
	"redcapprep/internal/redcap"
	"redcapprep/internal/service"
	"redcapprep/internal/workspace"
)

// Globals are flags shared by every command.
type Globals struct {
	Config    string `help:"YAML configuration file" type:"path" env:"REDCAPPREP_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" enum:"text,json"`
	HistoryDB string `name:"history-db" help:"Run history database (overrides config)" type:"path"`
	NoHistory bool   `name:"no-history" help:"Do not record batch runs"`
}

// load initialises logging and reads the configuration.
func (g *Globals) load() (*config.Config, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(os.Stderr, level, format)
	return config.Load(g.Config)
}

// start loads the configuration and starts an App that prints batch
// completions to stdout.
func (g *Globals) start(ctx context.Context) (*app.App, error) {
	return g.startWith(ctx, printEmitter{w: os.Stdout})
}

func (g *Globals) startWith(ctx context.Context, emitter service.EventEmitter) (*app.App, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	a := app.New(app.Options{
		Config:    cfg,
		HistoryDB: g.HistoryDB,
		NoHistory: g.NoHistory,
		Emitter:   emitter,
	})
	if err := a.Startup(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// printEmitter prints batch completion counts.
type printEmitter struct {
	w io.Writer
}

func (e printEmitter) Emit(_ context.Context, event string, data any) {
	done, ok := data.(service.BatchCompleted)
	if event != service.EventBatchCompleted || !ok {
		return
	}
	switch done.Kind {
	case domain.BatchTemplates:
		fmt.Fprintf(e.w, "Done with initial processing for %d files\n", done.Count)
	case domain.BatchRemap:
		fmt.Fprintf(e.w, "REDCap formatting from DataDictionary processed for %d source files\n", done.Count)
	}
}

// batchDirs fills directories not given on the command line from the
// configured workspace paths.
func batchDirs(cfg *config.Config, source, dicts, output string) (*workspace.Paths, error) {
	if source != "" && output != "" {
		if dicts == "" {
			dicts = filepath.Join(source, cfg.Paths.DictDir)
		}
		if err := os.MkdirAll(output, 0o755); err != nil {
			return nil, domain.NewIO("mkdir", output, err)
		}
		return &workspace.Paths{Source: source, Dictionary: dicts, Output: output}, nil
	}
	if !cfg.Paths.Complete() {
		return nil, fmt.Errorf("--source and --output are required unless paths.project is configured")
	}
	p, err := workspace.Resolve(cfg.Paths)
	if err != nil {
		return nil, err
	}
	if source != "" {
		p.Source = source
	}
	if dicts != "" {
		p.Dictionary = dicts
	}
	if output != "" {
		p.Output = output
	}
	return p, nil
}

// ── run ────────────────────────────────────────────────────

// RunCmd asks what to do and where, then runs the chosen batches.
type RunCmd struct{}

func (c *RunCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	prompter := console.NewPrompter(os.Stdin, os.Stdout)
	plan, err := prompter.AskPlan()
	if err != nil {
		return err
	}
	spec, err := prompter.ResolvePaths(a.Config().Paths)
	if err != nil {
		return err
	}
	paths, err := workspace.Resolve(spec)
	if err != nil {
		return err
	}

	if plan.Templates {
		if _, err := a.Prep().DiscoverAndTemplate(ctx, paths.Source, paths.Output); err != nil {
			return err
		}
	}
	if plan.Process {
		if _, err := a.Prep().DiscoverAndRemap(ctx, paths.Source, paths.Dictionary, paths.Output); err != nil {
			return err
		}
	}
	return nil
}

// ── template ───────────────────────────────────────────────

// TemplateCmd generates a template for a single source file.
type TemplateCmd struct {
	Source  string `arg:"" help:"Source CSV file" type:"existingfile"`
	Dest    string `arg:"" help:"Destination (.txt for a header list, .csv for a dictionary template)" type:"path"`
	Mode    string `help:"Output mode (auto, text-list, dictionary-skeleton)" default:"auto" enum:"auto,text-list,dictionary-skeleton"`
	FormID  string `name:"form-id" help:"Form identifier for dictionary rows" default:"form_1"`
	Variant string `help:"Dictionary layout (pinned, row-numbered); defaults to the configured variant"`
}

func (c *TemplateCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	variant := cfg.Variant()
	if c.Variant != "" {
		if variant, err = redcap.ParseVariant(c.Variant); err != nil {
			return err
		}
	}
	mode := redcap.Mode(c.Mode)
	if c.Mode == "auto" {
		mode = redcap.ModeAuto
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return err
	}

	res, err := redcap.GenerateTemplate(context.Background(), c.Source, c.Dest, redcap.TemplateOptions{
		Mode:      mode,
		FormID:    c.FormID,
		Variant:   variant,
		Delimiter: delim,
	})
	return reportTemplate(os.Stdout, c.Dest, res, err)
}

// reportTemplate prints the outcome of a template command. An unresolvable
// mode is reported and is not a failure.
func reportTemplate(w io.Writer, dest string, res *redcap.TemplateResult, err error) error {
	if errors.Is(err, domain.ErrUnresolvableMode) {
		fmt.Fprintf(w, "Skipped %s: %v\n", dest, err)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s with %d fields to %s\n", res.Mode, len(res.Headers), dest)
	return nil
}

// ── remap ──────────────────────────────────────────────────

// RemapCmd remaps a single source file.
type RemapCmd struct {
	Acronym    string `arg:"" help:"Source acronym used for the <acronym>_index column"`
	Source     string `arg:"" help:"Source CSV file" type:"existingfile"`
	Dictionary string `arg:"" help:"Completed data dictionary" type:"existingfile"`
	FormID     string `name:"form-id" help:"Form identifier to select dictionary rows" default:"form_1"`
	Out        string `help:"Write the processed CSV here; without it a preview is printed" type:"path"`
	Rows       int    `help:"Preview row count" default:"10"`
}

func (c *RemapCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return err
	}

	table, err := redcap.Remap(context.Background(), redcap.RemapRequest{
		Acronym:        c.Acronym,
		SourcePath:     c.Source,
		DictionaryPath: c.Dictionary,
		FormID:         c.FormID,
		OutputPath:     c.Out,
		Delimiter:      delim,
	})
	if err != nil {
		return err
	}
	if c.Out != "" {
		fmt.Printf("Wrote %d rows to %s\n", table.NumRows(), c.Out)
		return nil
	}
	return etl.WriteTable(os.Stdout, etl.Head(table, c.Rows), etl.CSVOptions{})
}

// ── templates / process ────────────────────────────────────

// TemplatesCmd generates templates for a directory of sources.
type TemplatesCmd struct {
	Source string `help:"Source directory" type:"path"`
	Output string `help:"Output directory" type:"path"`
}

func (c *TemplatesCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	dirs, err := batchDirs(a.Config(), c.Source, "", c.Output)
	if err != nil {
		return err
	}
	_, err = a.Prep().DiscoverAndTemplate(ctx, dirs.Source, dirs.Output)
	return err
}

// ProcessCmd remaps a directory of sources through completed dictionaries.
type ProcessCmd struct {
	Source       string `help:"Source directory" type:"path"`
	Dictionaries string `help:"Completed dictionary directory (default: <source>/<paths.dictionaries>)" type:"path"`
	Output       string `help:"Output directory" type:"path"`
}

func (c *ProcessCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	dirs, err := batchDirs(a.Config(), c.Source, c.Dictionaries, c.Output)
	if err != nil {
		return err
	}
	_, err = a.Prep().DiscoverAndRemap(ctx, dirs.Source, dirs.Dictionary, dirs.Output)
	return err
}

// ── watch ──────────────────────────────────────────────────

// WatchCmd keeps processing up to date until interrupted.
type WatchCmd struct {
	Source       string `help:"Source directory" type:"path"`
	Dictionaries string `help:"Completed dictionary directory" type:"path"`
	Output       string `help:"Output directory" type:"path"`
	Schedule     string `help:"Cron expression for scheduled runs (default: config schedule)"`
	NoFiles      bool   `name:"no-files" help:"Do not watch directories for changes"`
	Initial      bool   `help:"Process once before watching"`
}

func (c *WatchCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Shutdown(shutdownCtx)
	}()

	dirs, err := batchDirs(a.Config(), c.Source, c.Dictionaries, c.Output)
	if err != nil {
		return err
	}
	schedule := c.Schedule
	if schedule == "" {
		schedule = a.Config().Schedule
	}

	if c.Initial {
		if _, err := a.Prep().DiscoverAndRemap(ctx, dirs.Source, dirs.Dictionary, dirs.Output); err != nil {
			return err
		}
	}
	if err := a.Prep().Watch(ctx, service.WatchOptions{
		SourceDir: dirs.Source,
		DictDir:   dirs.Dictionary,
		OutputDir: dirs.Output,
		Files:     !c.NoFiles,
		Schedule:  schedule,
	}); err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", dirs.Source)
	<-ctx.Done()
	return nil
}

// ── history ────────────────────────────────────────────────

// HistoryCmd prints recorded runs, or the files of one run.
type HistoryCmd struct {
	Limit int    `help:"Number of runs to list" default:"20"`
	RunID string `name:"run" help:"Show the files of this run ID"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	if g.NoHistory {
		return fmt.Errorf("history is unavailable with --no-history")
	}
	ctx := context.Background()
	a, err := g.start(ctx)
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	if c.RunID != "" {
		files, err := a.Prep().ListRunFiles(c.RunID)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%-10s %-40s %-40s %6d %s\n", f.Status, f.SourceFile, f.Template, f.Rows, f.Error)
		}
		return nil
	}

	runs, err := a.Prep().ListRuns(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-9s %-10s %s  processed=%d skipped=%d failed=%d\n",
			r.ID, r.Kind, r.Trigger, r.StartedAt.Local().Format(time.DateTime),
			r.Processed, r.Skipped, r.Failed)
		for _, w := range r.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}
	return nil
}

// ── mcp ────────────────────────────────────────────────────

// McpCmd serves the batch operations as MCP tools over stdio.
type McpCmd struct{}

func (c *McpCmd) Run(g *Globals) error {
	ctx := context.Background()
	// stdout carries the protocol; completions are not printed.
	a, err := g.startWith(ctx, service.NopEmitter{})
	if err != nil {
		return err
	}
	defer a.Shutdown(ctx)

	return mcpserver.New(mcpserver.Deps{
		Prep:    a.Prep(),
		Config:  a.Config(),
		Version: version,
	}).ServeStdio()
}

// ── version ────────────────────────────────────────────────

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("redcapprep version %s\n", version)
	return nil
}
