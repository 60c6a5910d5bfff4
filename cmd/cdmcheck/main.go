package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Mindburn-Labs/cdmcheck/pkg/versioning"
)

// Exit codes shared by every command.
const (
	exitOK    = 0 // every report ok
	exitNotOK = 1 // at least one report not ok
	exitFatal = 2 // usage, configuration, input or I/O error
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return exitFatal
	}

	switch args[1] {
	case "validate":
		return runValidate(args[2:], stdout, stderr)
	case "rules":
		return runRules(args[2:], stdout, stderr)
	case "history":
		return runHistory(args[2:], stdout, stderr)
	case "version", "--version":
		v, err := versioning.Validator()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
		_, _ = fmt.Fprintf(stdout, "cdmcheck %s (rule set %s, accepts %s)\n",
			v, versioning.RuleSetVersion, versioning.RuleSetConstraint)
		return exitOK
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return exitFatal
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorGreen = "\033[32m"
	ColorBlue  = "\033[34m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%scdmcheck %s%s\n", ColorBold+ColorBlue, versioning.Version, ColorReset)
	_, _ = fmt.Fprintf(w, "%sConjunction data message validator.%s\n", ColorGray, ColorReset)
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	_, _ = fmt.Fprintln(w, "  cdmcheck <command> [flags]")
	_, _ = fmt.Fprintln(w, "")

	printSection(w, "VALIDATION")
	printCommand(w, "validate", "Validate message files (--rules, --out, --json, --strict)")
	printCommand(w, "rules", "Print the default rules or check a rules file (--check)")
	printCommand(w, "history", "List or show recorded reports (--ledger, --limit, --show)")

	printSection(w, "UTILITIES")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")

	printSection(w, "EXIT CODES")
	_, _ = fmt.Fprintln(w, "  0  every report ok")
	_, _ = fmt.Fprintln(w, "  1  at least one report has a FAIL (or a WARN with --strict)")
	_, _ = fmt.Fprintln(w, "  2  usage, configuration, input or I/O error")
	_, _ = fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %s%-12s%s %s\n", ColorGreen, name, ColorReset, desc)
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
