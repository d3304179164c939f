package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common    commonFlags
	output    string
	static    string
	flavor    string
	incSource bool
	noExecute bool
	expand    bool
	preview   bool
	workers   int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file path (default: search upwards for mdpost.yaml)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "directory for rendered posts (overrides path_to_posts)")
	fs.StringVar(&f.static, "static", "", "directory for post images (overrides path_to_static)")
	fs.StringVarP(&f.flavor, "flavor", "f", "", "target platform: hugo, markdown")
	fs.BoolVar(&f.incSource, "incsource", false, "link the post sources in the footer")
	fs.BoolVar(&f.noExecute, "no-execute", false, "never run code; paired notebook outputs are still used")
	fs.BoolVar(&f.expand, "expand", false, "expand {{ expand(...) }} directives even if the post does not allow it")
	fs.BoolVar(&f.preview, "preview", false, "also write an HTML preview next to each post")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")

	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printRenderUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
