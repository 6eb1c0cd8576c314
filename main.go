// Command redcapprep prepares delimited data exports for REDCap import:
// it generates data-dictionary templates from source headers and remaps
// sources through completed dictionaries.
package main

import (
	"github.com/alecthomas/kong"
)

const version = "0.4.0"

// CLI defines the command-line interface for redcapprep.
var CLI struct {
	Globals

	Run       RunCmd       `cmd:"" help:"Interactive flow: choose an action and enter project paths"`
	Template  TemplateCmd  `cmd:"" help:"Write a header list or dictionary template for one source file"`
	Remap     RemapCmd     `cmd:"" help:"Rename and reorder one source file through a completed dictionary"`
	Templates TemplatesCmd `cmd:"" help:"Generate templates for every file in a source directory"`
	Process   ProcessCmd   `cmd:"" help:"Remap every matched file in a source directory"`
	Watch     WatchCmd     `cmd:"" help:"Re-run processing on file changes or a schedule"`
	History   HistoryCmd   `cmd:"" help:"List recorded batch runs"`
	Mcp       McpCmd       `cmd:"" help:"Serve template and remap tools over MCP (stdio)"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("redcapprep"),
		kong.Description("REDCap data preparation: dictionary templates and column remapping"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
