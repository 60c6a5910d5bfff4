package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/cdmcheck/pkg/rules"
)

// runRules implements `cdmcheck rules`. Without --check it prints the
// built-in rules, which make a starting point for a rules file.
func runRules(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("rules", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		checkPath  string
		jsonOutput bool
	)
	cmd.StringVar(&checkPath, "check", "", "Validate this rules file and print its digest")
	cmd.BoolVar(&jsonOutput, "json", false, "Print rules as JSON instead of YAML")

	if err := cmd.Parse(args); err != nil {
		return exitFatal
	}

	r := rules.Default()
	if checkPath != "" {
		loaded, err := rules.Load(checkPath)
		if err != nil {
			var ce *rules.ConfigError
			if errors.As(err, &ce) {
				_, _ = fmt.Fprintf(stderr, "Invalid rules file %s:\n", checkPath)
				for _, p := range ce.Problems {
					_, _ = fmt.Fprintf(stderr, "  - %s\n", p)
				}
			} else {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			}
			return exitFatal
		}
		r = loaded
	}

	digest, err := r.Digest()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	if checkPath != "" && !jsonOutput {
		_, _ = fmt.Fprintf(stdout, "Rules OK:     %s\n", checkPath)
		_, _ = fmt.Fprintf(stdout, "Version:      %s\n", orDefault(r.Version, "(unversioned)"))
		_, _ = fmt.Fprintf(stdout, "Digest:       %s\n", digest)
		_, _ = fmt.Fprintf(stdout, "Custom rules: %d\n", len(r.CustomRules))
		return exitOK
	}

	var data []byte
	if jsonOutput {
		data, err = json.MarshalIndent(r, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(r)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	if !jsonOutput {
		_, _ = fmt.Fprintf(stdout, "# cdmcheck built-in rules (digest %s)\n", digest)
	}
	_, _ = stdout.Write(data)
	return exitOK
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
