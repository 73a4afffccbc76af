// Package patterns provides shared regex patterns and helper functions for PNR parsing.
// This file contains the grok-style pattern compiler.

package patterns

import (
	"regexp"
	"strings"
)

// Format represents a line grammar with named capture groups.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
	Fields   []string       // Field names in capture order (for documentation)
}

// Compiler manages pattern compilation and matching for a set of formats.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
}

// NewCompiler creates a new pattern compiler with the given formats.
// Local patterns override the global BasePatterns.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: make(map[string]string, len(BasePatterns)+len(localPatterns)),
		formats:      make([]Format, len(formats)),
	}
	for k, v := range BasePatterns {
		c.basePatterns[k] = v
	}
	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}
	copy(c.formats, formats)
	return c
}

// Compile expands all {PLACEHOLDER} references and compiles regexes.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		re, err := regexp.Compile(c.expand(c.formats[i].Pattern))
		if err != nil {
			return err
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// expand replaces {PLACEHOLDER} with actual regex patterns.
func (c *Compiler) expand(pattern string) string {
	result := pattern
	for name, regex := range c.basePatterns {
		result = strings.ReplaceAll(result, "{"+name+"}", regex)
	}
	return result
}

// Match represents a successful pattern match with extracted fields.
type Match struct {
	FormatName string            // Name of the matched format
	Offset     int               // Byte offset of the match in the normalised text
	Captures   map[string]string // Named capture group values
}

// Normalise upper-cases text and folds CRLF / CR line endings to LF so that
// (?m) anchors behave the same for every OCR source.
func Normalise(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ToUpper(text)
}

func captures(re *regexp.Regexp, text string, loc []int) map[string]string {
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		if loc[2*i] < 0 {
			out[name] = ""
			continue
		}
		out[name] = text[loc[2*i]:loc[2*i+1]]
	}
	return out
}

// Parse returns the first format that matches text, or nil.
func (c *Compiler) Parse(text string) *Match {
	upperText := Normalise(text)

	for _, format := range c.formats {
		if format.Compiled == nil {
			continue
		}
		loc := format.Compiled.FindStringSubmatchIndex(upperText)
		if loc == nil {
			continue
		}
		return &Match{
			FormatName: format.Name,
			Offset:     loc[0],
			Captures:   captures(format.Compiled, upperText, loc),
		}
	}

	return nil
}

// FindAll returns every occurrence of the named format in text, in the
// order they appear.
func (c *Compiler) FindAll(text string, formatName string) []*Match {
	upperText := Normalise(text)
	var results []*Match

	for _, format := range c.formats {
		if format.Name != formatName || format.Compiled == nil {
			continue
		}
		for _, loc := range format.Compiled.FindAllStringSubmatchIndex(upperText, -1) {
			results = append(results, &Match{
				FormatName: format.Name,
				Offset:     loc[0],
				Captures:   captures(format.Compiled, upperText, loc),
			})
		}
		break
	}

	return results
}

// GetCapture is a helper to safely get a capture value with a default.
func (m *Match) GetCapture(name string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if val, ok := m.Captures[name]; ok && val != "" {
		return val
	}
	return defaultVal
}

// FormatTrace contains debug information about a format match attempt.
type FormatTrace struct {
	Name     string            // Format name
	Matched  bool              // Whether the pattern matched at least once
	Count    int               // Number of matches in the text
	Pattern  string            // The expanded regex pattern
	Captures map[string]string // Captures of the first match
}

// Trace reports, for every format, whether and how often it matched text.
// This is useful for working out why an OCR line was not picked up.
func (c *Compiler) Trace(text string) []FormatTrace {
	upperText := Normalise(text)
	traces := make([]FormatTrace, 0, len(c.formats))

	for _, format := range c.formats {
		ft := FormatTrace{
			Name:    format.Name,
			Pattern: c.expand(format.Pattern),
		}
		if format.Compiled == nil {
			traces = append(traces, ft)
			continue
		}

		all := format.Compiled.FindAllStringSubmatchIndex(upperText, -1)
		if len(all) > 0 {
			ft.Matched = true
			ft.Count = len(all)
			ft.Captures = captures(format.Compiled, upperText, all[0])
		}
		traces = append(traces, ft)
	}

	return traces
}
