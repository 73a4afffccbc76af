package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"pnr_parser/internal/extractor"
	"pnr_parser/internal/ingest"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/storage"
)

// ExtractOut is one entry of the extract command's output.
type ExtractOut struct {
	Input  string      `json:"input" yaml:"input"`
	Kind   string      `json:"payload_kind,omitempty" yaml:"payload_kind,omitempty"`
	ID     string      `json:"id,omitempty" yaml:"id,omitempty"`
	Result *pnr.Result `json:"result" yaml:"result"`
}

// Stats are the counters printed by --stats.
type Stats struct {
	Inputs          int
	Skipped         int
	Parsed          int
	ScheduleChanges int
	Eligible        int
	Stored          int
	ByDialect       map[pnr.Dialect]int
}

type extractOptions struct {
	output  string
	format  string
	pretty  bool
	jsonl   bool
	now     string
	stats   bool
	store   string
	nowTime time.Time
}

func extractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [file...]",
		Short: "Parse reservation text and print the results",
		Long: "Parse each input file as one reservation text (stdin when no files are given).\n" +
			"With --jsonl every input line is a submission payload instead: an envelope,\n" +
			"a flat submission or an intake log entry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.now != "" {
				t, err := time.Parse(time.RFC3339, opts.now)
				if err != nil {
					return fmt.Errorf("invalid --now (use RFC 3339): %w", err)
				}
				opts.nowTime = t
			}
			if opts.format != "json" && opts.format != "yaml" {
				return fmt.Errorf("invalid --format %q (use json or yaml)", opts.format)
			}
			return runExtract(cmd.Context(), a, cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().BoolVar(&opts.jsonl, "jsonl", false, "Treat input as JSONL submission payloads")
	cmd.Flags().StringVar(&opts.now, "now", "", "Reference time for issue-date arithmetic (RFC 3339)")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print basic counters to stderr")
	cmd.Flags().StringVar(&opts.store, "store", "", "Persist results to this backend: sqlite, postgres or clickhouse")

	return cmd
}

func runExtract(ctx context.Context, a *app, cmd *cobra.Command, args []string, opts *extractOptions) error {
	var parseOpts []extractor.Option
	if !opts.nowTime.IsZero() {
		parseOpts = append(parseOpts, extractor.WithNow(opts.nowTime))
	}

	var store storage.Store
	if opts.store != "" {
		cfg := a.cfg.Storage
		cfg.Backend = opts.store
		s, err := storage.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		if s != nil {
			defer func() { _ = s.Close() }()
			store = s
		}
	}

	st := &Stats{ByDialect: make(map[pnr.Dialect]int)}
	out := make([]ExtractOut, 0, 16)

	handle := func(input, kind string, sub *pnr.Submission) error {
		result := extractor.Parse(sub.Text, parseOpts...)
		entry := ExtractOut{Input: input, Kind: kind, Result: result}

		st.Parsed++
		st.ByDialect[result.GDSDialect]++
		if result.ScheduleChange != nil {
			st.ScheduleChanges++
		}
		if result.Eligibility3Hour {
			st.Eligible++
		}

		if store != nil {
			rec := storage.NewRecord(sub, result, time.Now())
			if err := store.Insert(ctx, rec); err != nil {
				return fmt.Errorf("store %s: %w", input, err)
			}
			st.Stored++
			entry.ID = rec.ID
		}

		out = append(out, entry)
		return nil
	}

	readers, err := openInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	defer func() {
		for _, in := range readers {
			_ = in.Close()
		}
	}()

	for _, in := range readers {
		if opts.jsonl {
			if err := scanJSONL(in, st, handle); err != nil {
				return err
			}
			continue
		}

		b, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", in.name, err)
		}
		st.Inputs++
		if strings.TrimSpace(string(b)) == "" {
			st.Skipped++
			continue
		}
		if err := handle(in.name, "", &pnr.Submission{Source: in.name, Text: string(b)}); err != nil {
			return err
		}
	}

	var wout io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		wout = f
	}

	enc, err := marshalOutput(out, opts.format, opts.pretty)
	if err != nil {
		return err
	}
	_, _ = wout.Write(enc)
	if opts.output == "" && opts.format == "json" {
		_, _ = wout.Write([]byte("\n"))
	}

	if opts.stats {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"stats: inputs=%d parsed=%d skipped=%d schedule_changes=%d eligible=%d stored=%d dialects=%v\n",
			st.Inputs, st.Parsed, st.Skipped, st.ScheduleChanges, st.Eligible, st.Stored, st.ByDialect,
		)
		if store != nil {
			counts, err := store.CountByDialect(ctx)
			if err != nil {
				return fmt.Errorf("count stored parses: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "stored totals: dialects=%v\n", counts)
		}
	}
	a.logger.Debug("extract finished", "parsed", st.Parsed, "stored", st.Stored)
	return nil
}

type namedReader struct {
	io.Reader
	name   string
	closer io.Closer
}

func (n namedReader) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}

func openInputs(stdin io.Reader, paths []string) ([]namedReader, error) {
	if len(paths) == 0 {
		return []namedReader{{Reader: stdin, name: "stdin"}}, nil
	}

	readers := make([]namedReader, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, r := range readers {
				_ = r.Close()
			}
			return nil, fmt.Errorf("open input: %w", err)
		}
		readers = append(readers, namedReader{Reader: f, name: p, closer: f})
	}
	return readers, nil
}

func scanJSONL(in namedReader, st *Stats, handle func(input, kind string, sub *pnr.Submission) error) error {
	scanner := bufio.NewScanner(in)
	// Screenshots can produce long texts; bump buffer.
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		st.Inputs++

		sub, kind := ingest.Decode([]byte(text))
		if sub == nil {
			st.Skipped++
			continue
		}
		if err := handle(fmt.Sprintf("%s:%d", in.name, line), kind, sub); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", in.name, err)
	}
	return nil
}

func marshalOutput(v any, format string, pretty bool) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(v)
	}
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
