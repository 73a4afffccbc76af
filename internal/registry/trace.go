// Package registry provides tracing interfaces for grammar debugging.
package registry

// TraceResult contains trace information from a pass's attempt on a text.
type TraceResult struct {
	PassName   string        `json:"pass"`                  // Name of the pass.
	QuickCheck *QuickCheck   `json:"quick_check,omitempty"` // QuickCheck result (nil if not applicable).
	Formats    []FormatTrace `json:"formats,omitempty"`     // Format/pattern match attempts.
	Matched    bool          `json:"matched"`               // Whether the pass extracted anything.
}

// QuickCheck contains the result of a pass's quick check.
type QuickCheck struct {
	Passed bool   `json:"passed"`           // Whether the quick check passed.
	Reason string `json:"reason,omitempty"` // Optional reason for the result.
}

// FormatTrace contains debug information about a line grammar.
type FormatTrace struct {
	Name     string            `json:"name"`               // Format name.
	Matched  bool              `json:"matched"`            // Whether the pattern matched.
	Count    int               `json:"count"`              // Number of matching lines.
	Pattern  string            `json:"pattern"`            // The regex pattern used.
	Captures map[string]string `json:"captures,omitempty"` // Captures of the first match.
}

// Traceable is implemented by passes that support debug tracing, so the
// trace command can show why an OCR line was or wasn't picked up.
type Traceable interface {
	ExtractWithTrace(text string) *TraceResult
}
