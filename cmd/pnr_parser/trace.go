package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"pnr_parser/internal/extractor"
)

func traceCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		showRe bool
	)

	cmd := &cobra.Command{
		Use:   "trace [file]",
		Short: "Show how each grammar handled a reservation text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			readers, err := openInputs(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			defer func() { _ = readers[0].Close() }()

			b, err := io.ReadAll(readers[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", readers[0].name, err)
			}

			report := extractor.Trace(string(b))
			w := cmd.OutOrStdout()

			if asJSON {
				enc, err := marshalOutput(report, "json", true)
				if err != nil {
					return err
				}
				_, _ = w.Write(append(enc, '\n'))
				return nil
			}

			fmt.Fprintf(w, "dialect: %s\n", report.Dialect)
			fmt.Fprintf(w, "passes: %d (dialect-specific for %v)\n", report.PassCount, report.DialectPasses)
			for _, p := range report.Passes {
				mark := " "
				if p.Matched {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %s\n", mark, p.PassName)
				if p.QuickCheck != nil && !p.QuickCheck.Passed {
					fmt.Fprintf(w, "    quick check failed: %s\n", p.QuickCheck.Reason)
					continue
				}
				for _, f := range p.Formats {
					fmt.Fprintf(w, "    %-14s matches=%d\n", f.Name, f.Count)
					if showRe {
						fmt.Fprintf(w, "      pattern: %s\n", f.Pattern)
					}
					for _, k := range sortedKeys(f.Captures) {
						fmt.Fprintf(w, "      %s=%q\n", k, f.Captures[k])
					}
				}
			}
			if len(report.Segments) > 0 {
				fmt.Fprintln(w, "segments:")
			}
			for _, s := range report.Segments {
				next := ""
				if s.ArrivesNextDay {
					next = " (+1 day)"
				}
				fmt.Fprintf(w, "  %d %-12s %-6s %s -> %s%s  [%s]\n",
					s.Ordinal, s.Route, s.StatusCode, minutesOf(s.DepartureMinutes), minutesOf(s.ArrivalMinutes), next, s.Grammar)
			}
			a.logger.Debug("trace finished", "passes", len(report.Passes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the trace as JSON")
	cmd.Flags().BoolVar(&showRe, "patterns", false, "Print the compiled pattern of every format")

	return cmd
}

func minutesOf(m *int) string {
	if m == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *m)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
