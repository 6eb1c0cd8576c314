package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"redcapprep/internal/etl"
	"redcapprep/internal/redcap"
	"redcapprep/internal/service"
)

// ── Single-file tools ──────────────────────────────────────

func (s *Server) registerFileTools() {
	s.mcp.AddTool(mcp.NewTool("generate_template",
		mcp.WithDescription("Read the header row of a CSV file and write a header list (.txt) or a REDCap data dictionary template (.csv). Overwrites dest."),
		mcp.WithString("source", mcp.Description("Source CSV path"), mcp.Required()),
		mcp.WithString("dest", mcp.Description("Destination path; .txt writes a header list, .csv a dictionary template"), mcp.Required()),
		mcp.WithString("formId", mcp.Description("Form identifier for dictionary rows (default form_1)")),
		mcp.WithString("variant", mcp.Description("Dictionary layout: pinned or row-numbered (default from config)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleGenerateTemplate)

	s.mcp.AddTool(mcp.NewTool("preview_remap",
		mcp.WithDescription("Rename and reorder a source CSV through a completed data dictionary and return the first rows without writing anything"),
		mcp.WithString("acronym", mcp.Description("Source acronym used for the <acronym>_index column"), mcp.Required()),
		mcp.WithString("source", mcp.Description("Source CSV path"), mcp.Required()),
		mcp.WithString("dictionary", mcp.Description("Completed data dictionary path"), mcp.Required()),
		mcp.WithString("formId", mcp.Description("Form identifier to select dictionary rows (default form_1)")),
		mcp.WithNumber("rows", mcp.Description("Number of rows to return (default 10)")),
	), s.handlePreviewRemap)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the supported source file types"),
	), s.handleListSources)
}

func (s *Server) handleGenerateTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src := req.GetString("source", "")
	dest := req.GetString("dest", "")
	if src == "" || dest == "" {
		return nil, fmt.Errorf("source and dest are required")
	}

	variant := s.cfg.Variant()
	if v := req.GetString("variant", ""); v != "" {
		parsed, err := redcap.ParseVariant(v)
		if err != nil {
			return nil, err
		}
		variant = parsed
	}
	delim, err := s.cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}

	res, err := redcap.GenerateTemplate(ctx, src, dest, redcap.TemplateOptions{
		FormID:    req.GetString("formId", ""),
		Variant:   variant,
		Delimiter: delim,
	})
	if err != nil {
		return nil, fmt.Errorf("generate template: %w", err)
	}
	return jsonResult(map[string]any{
		"mode":    res.Mode,
		"dest":    dest,
		"headers": res.Headers,
	})
}

func (s *Server) handlePreviewRemap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acronym := req.GetString("acronym", "")
	src := req.GetString("source", "")
	dict := req.GetString("dictionary", "")
	if acronym == "" || src == "" || dict == "" {
		return nil, fmt.Errorf("acronym, source and dictionary are required")
	}
	delim, err := s.cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}

	table, err := redcap.Remap(ctx, redcap.RemapRequest{
		Acronym:        acronym,
		SourcePath:     src,
		DictionaryPath: dict,
		FormID:         req.GetString("formId", ""),
		Delimiter:      delim,
	})
	if err != nil {
		return nil, fmt.Errorf("remap: %w", err)
	}
	head := etl.Head(table, req.GetInt("rows", 10))
	return jsonResult(map[string]any{
		"columns":   head.Columns,
		"rows":      head.Rows,
		"totalRows": table.NumRows(),
	})
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(etl.ListSources())
}

// ── Batch tools ────────────────────────────────────────────

func (s *Server) registerBatchTools() {
	s.mcp.AddTool(mcp.NewTool("discover_and_template",
		mcp.WithDescription("Generate a header list and a dictionary template for every file in a source directory. Overwrites existing templates in the output directory."),
		mcp.WithString("sourceDir", mcp.Description("Directory of source CSV files"), mcp.Required()),
		mcp.WithString("outputDir", mcp.Description("Directory for the generated files"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDiscoverAndTemplate)

	s.mcp.AddTool(mcp.NewTool("discover_and_remap",
		mcp.WithDescription("Remap every source file that has a matching completed dictionary and writes <base>_redcap_processed.csv files. Overwrites existing outputs."),
		mcp.WithString("sourceDir", mcp.Description("Directory of source CSV files"), mcp.Required()),
		mcp.WithString("dictionaryDir", mcp.Description("Directory of completed data dictionaries"), mcp.Required()),
		mcp.WithString("outputDir", mcp.Description("Directory for processed files"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDiscoverAndRemap)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recorded batch runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
	), s.handleListRuns)

	s.mcp.AddTool(mcp.NewTool("list_run_files",
		mcp.WithDescription("List the per-file outcomes of a recorded batch run"),
		mcp.WithString("runId", mcp.Description("Run ID"), mcp.Required()),
	), s.handleListRunFiles)
}

// batchSummary is the tool-facing view of a BatchResult.
type batchSummary struct {
	RunID     string            `json:"runId"`
	Processed []string          `json:"processed"`
	Skipped   []string          `json:"skipped,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

func summarize(res *service.BatchResult) batchSummary {
	sum := batchSummary{
		RunID:     res.Run.ID,
		Processed: res.Processed,
		Skipped:   res.Skipped,
		Warnings:  res.Warnings,
	}
	if sum.Processed == nil {
		sum.Processed = []string{}
	}
	if len(res.Failed) > 0 {
		sum.Failed = make(map[string]string, len(res.Failed))
		for _, f := range res.Failed {
			sum.Failed[f.File] = f.Err.Error()
		}
	}
	return sum
}

func (s *Server) handleDiscoverAndTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceDir := req.GetString("sourceDir", "")
	outputDir := req.GetString("outputDir", "")
	if sourceDir == "" || outputDir == "" {
		return nil, fmt.Errorf("sourceDir and outputDir are required")
	}
	res, err := s.prep.DiscoverAndTemplate(ctx, sourceDir, outputDir)
	if err != nil {
		return nil, fmt.Errorf("discover and template: %w", err)
	}
	return jsonResult(summarize(res))
}

func (s *Server) handleDiscoverAndRemap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceDir := req.GetString("sourceDir", "")
	dictDir := req.GetString("dictionaryDir", "")
	outputDir := req.GetString("outputDir", "")
	if sourceDir == "" || dictDir == "" || outputDir == "" {
		return nil, fmt.Errorf("sourceDir, dictionaryDir and outputDir are required")
	}
	res, err := s.prep.DiscoverAndRemap(ctx, sourceDir, dictDir, outputDir)
	if err != nil {
		return nil, fmt.Errorf("discover and remap: %w", err)
	}
	return jsonResult(summarize(res))
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.prep.ListRuns(req.GetInt("limit", 20))
	if err != nil {
		return nil, err
	}
	return jsonResult(runs)
}

func (s *Server) handleListRunFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := req.GetString("runId", "")
	if runID == "" {
		return nil, fmt.Errorf("runId is required")
	}
	files, err := s.prep.ListRunFiles(runID)
	if err != nil {
		return nil, err
	}
	return jsonResult(files)
}
