package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpost <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Execute posts and write publish-ready Markdown")
	fmt.Fprintln(w, "  doctor     Check the interpreter setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mdpost help <command>' for details on a specific command.")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpost render [flags] [POST...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render posts. POST is a source file (.md, .ipynb, .py), a post directory")
	fmt.Fprintln(w, "holding post.md, post.ipynb or post.py, or a directory of post directories.")
	fmt.Fprintln(w, "Defaults to the current directory. The post directory name is the")
	fmt.Fprintln(w, "canonical name: posts are written as <name>.md.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Directory for rendered posts (config: path_to_posts)")
	fmt.Fprintln(w, "      --static <dir>        Directory for images (config: path_to_static)")
	fmt.Fprintln(w, "  -f, --flavor <s>          Target platform: hugo, markdown (default)")
	fmt.Fprintln(w, "      --incsource           Link the post sources in the footer")
	fmt.Fprintln(w, "      --preview             Also write an HTML preview")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Execution:")
	fmt.Fprintln(w, "      --no-execute          Never run code")
	fmt.Fprintln(w, "      --expand              Expand directives even if the post does not allow it")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <path>       Config file (default: search upwards for mdpost.yaml)")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MDPOST_KERNEL_URL         Use a running Jupyter Server instead of launching one")
	fmt.Fprintln(w, "  MDPOST_KERNEL_TOKEN       Token for MDPOST_KERNEL_URL")
	fmt.Fprintln(w, "  MDPOST_KERNEL_NAME        Kernel spec name (default: python3)")
	fmt.Fprintln(w, "  MDPOST_CONFIG             Config file path")
	fmt.Fprintln(w, "  MDPOST_FLAVOR             Default flavor")
	fmt.Fprintln(w, "  MDPOST_WORKERS            Default worker count")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpost doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that code blocks can be executed: Jupyter availability or a")
	fmt.Fprintln(w, "configured server, container and CI detection, config discovery.")
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}
	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mdpost version")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage(env.Stderr)
	}
}
