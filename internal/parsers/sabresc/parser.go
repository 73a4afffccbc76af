// Package sabresc recognises the Sabre schedule-change summary line. It
// only runs when the text was detected as Sabre.
package sabresc

import (
	"strings"
	"sync"

	"pnr_parser/internal/patterns"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/registry"
)

// Parser extracts a single SC declaration. When several SC lines are
// present the first recognised one wins.
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

func (p *Parser) Name() string            { return "sabre_sc_line" }
func (p *Parser) Dialects() []pnr.Dialect { return []pnr.Dialect{pnr.DialectSabre} }
func (p *Parser) Priority() int           { return 10 }

func (p *Parser) QuickCheck(text string) bool {
	return strings.Contains(strings.ToUpper(text), "SC")
}

func (p *Parser) Extract(text string) *registry.Extraction {
	compiler, err := getCompiler()
	if err != nil {
		return nil
	}

	match := compiler.Parse(text)
	if match == nil {
		return nil
	}

	return &registry.Extraction{
		Pass: p.Name(),
		Declaration: &pnr.Declaration{
			Carrier:        match.Captures["carrier"],
			FlightNumber:   match.Captures["flight"],
			Date:           match.Captures["date"],
			Origin:         match.Captures["origin"],
			Destination:    match.Captures["destination"],
			DepartureToken: match.Captures["dep"],
			ArrivalToken:   match.Captures["arr"],
		},
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
		trace.QuickCheck.Reason = "No SC marker found"
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
