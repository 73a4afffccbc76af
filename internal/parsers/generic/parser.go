// Package generic extracts itinerary segments with the dialect-agnostic
// 24-hour and 12-hour line grammars. It runs for every dialect.
package generic

import (
	"sort"
	"strings"
	"sync"

	"pnr_parser/internal/patterns"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/registry"
)

// Parser runs both clock grammars. Segments from either grammar are returned
// in the order their lines appear in the text.
type Parser struct{}

// Grok compiler singleton.
var (
	grokCompiler *patterns.Compiler
	grokOnce     sync.Once
	grokErr      error
)

// getCompiler returns the singleton grok compiler.
func getCompiler() (*patterns.Compiler, error) {
	grokOnce.Do(func() {
		grokCompiler = patterns.NewCompiler(Formats, nil)
		grokErr = grokCompiler.Compile()
	})
	return grokCompiler, grokErr
}

func init() {
	registry.Register(&Parser{})
}

func (p *Parser) Name() string            { return "generic_segments" }
func (p *Parser) Dialects() []pnr.Dialect { return nil }
func (p *Parser) Priority() int           { return 100 }

// QuickCheck looks for a month abbreviation. Every segment line carries a
// DDMON date, so text without one cannot produce a segment.
func (p *Parser) QuickCheck(text string) bool {
	upperText := strings.ToUpper(text)
	for _, mon := range months {
		if strings.Contains(upperText, mon) {
			return true
		}
	}
	return false
}

var months = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

func (p *Parser) Extract(text string) *registry.Extraction {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	var matches []*patterns.Match
	for _, name := range []string{Format24h, Format12h} {
		matches = append(matches, compiler.FindAll(text, name)...)
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Offset < matches[j].Offset
	})

	segments := make([]pnr.Segment, 0, len(matches))
	for i, m := range matches {
		segments = append(segments, segmentFrom(m, i))
	}

	return &registry.Extraction{Pass: p.Name(), Segments: segments}
}

// segmentFrom builds a segment from a line match. Captures are already
// upper-cased by the compiler.
func segmentFrom(m *patterns.Match, ordinal int) pnr.Segment {
	return pnr.Segment{
		Carrier:        m.GetCapture("carrier", ""),
		FlightNumber:   m.GetCapture("flight", ""),
		Date:           m.GetCapture("date", ""),
		Origin:         m.GetCapture("origin", ""),
		Destination:    m.GetCapture("destination", ""),
		StatusCode:     m.GetCapture("status", ""),
		DepartureToken: m.GetCapture("dep", ""),
		ArrivalToken:   m.GetCapture("arr", ""),
		Ordinal:        ordinal,
		Grammar:        m.FormatName,
	}
}

// ExtractWithTrace implements registry.Traceable for detailed debugging.
func (p *Parser) ExtractWithTrace(text string) *registry.TraceResult {
	trace := &registry.TraceResult{
		PassName: p.Name(),
	}

	quickCheckPassed := p.QuickCheck(text)
	trace.QuickCheck = &registry.QuickCheck{
		Passed: quickCheckPassed,
	}

	if !quickCheckPassed {
		trace.QuickCheck.Reason = "No DDMON date token found"
		return trace
	}

	compiler, err := getCompiler()
	if err != nil {
		trace.QuickCheck.Reason = "Compiler error: " + err.Error()
		return trace
	}

	for _, ft := range compiler.Trace(text) {
		trace.Formats = append(trace.Formats, registry.FormatTrace(ft))
		if ft.Matched {
			trace.Matched = true
		}
	}

	return trace
}
