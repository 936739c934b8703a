package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nexxia-ai/insights/chart/codeblock"
	"github.com/nexxia-ai/insights/security"
	"github.com/spf13/cobra"
)

func (a *app) screenCmd() *cobra.Command {
	var (
		format  string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "screen <file>...",
		Short: "Check Python files for dangerous calls and imports",
		Long: `Screen Python sources with the same rules the chart executor applies.
Markdown files are screened block by block. Use - to read stdin.
Exits with status 1 when any input is unsafe.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.screener()
			if verbose {
				s = s.WithLogger(a.logger)
			}
			unsafe, err := screen(cmd.OutOrStdout(), cmd.InOrStdin(), s, args, format)
			if err != nil {
				return err
			}
			if unsafe {
				return errUnsafe
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or sarif")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every finding")
	return cmd
}

// screen scans every path and writes the verdicts to w. It reports whether any input was unsafe.
func screen(w io.Writer, stdin io.Reader, s *security.Screener, paths []string, format string) (bool, error) {
	switch format {
	case "text", "json", "sarif":
	default:
		return false, fmt.Errorf("unknown format %q", format)
	}

	verdicts := map[string]security.Verdict{}
	var order []string
	for _, path := range paths {
		src, err := readInput(path, stdin)
		if err != nil {
			return false, err
		}
		for _, in := range sources(path, string(src)) {
			if _, seen := verdicts[in.name]; !seen {
				order = append(order, in.name)
			}
			verdicts[in.name] = s.Scan(in.code)
		}
	}

	unsafe := false
	for _, v := range verdicts {
		unsafe = unsafe || v.Unsafe
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return unsafe, enc.Encode(verdicts)
	case "sarif":
		return unsafe, security.WriteSARIF(w, verdicts)
	}

	for _, name := range order {
		v := verdicts[name]
		if !v.Unsafe {
			fmt.Fprintf(w, "%s: safe\n", name)
			continue
		}
		fmt.Fprintf(w, "%s: UNSAFE\n", name)
		for _, f := range v.Findings {
			fmt.Fprintf(w, "  %s:%d: %s\n", name, f.Line, f.Message)
		}
	}
	return unsafe, nil
}

type source struct {
	name string
	code string
}

// sources splits markdown into its Python code blocks, numbered in file order;
// anything else is one Python source.
func sources(path, src string) []source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		var out []source
		for i, block := range codeblock.ExtractAll(src) {
			out = append(out, source{name: fmt.Sprintf("%s#%d", path, i+1), code: block})
		}
		return out
	}
	return []source{{name: path, code: src}}
}
