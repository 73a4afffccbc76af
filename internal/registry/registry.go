// Package registry provides the extraction-pass registry that runs segment
// grammars over reservation text.
//
// Passes bound to a dialect run first, and only when that dialect was
// detected. Generic passes (no dialect) always run afterwards.
package registry

import (
	"sort"
	"sync"

	"pnr_parser/internal/pnr"
)

// Extraction is what a single pass found in the text.
type Extraction struct {
	Pass        string           // Name of the pass that produced it.
	Segments    []pnr.Segment    // Itinerary segments in text order.
	Declaration *pnr.Declaration // Explicit schedule-change line, if any.
}

// Empty reports whether the extraction carries nothing.
func (e *Extraction) Empty() bool {
	return e == nil || (len(e.Segments) == 0 && e.Declaration == nil)
}

// Pass is implemented by each line grammar.
type Pass interface {
	// Name returns the pass's unique identifier.
	Name() string

	// Dialects returns which GDS dialects this pass is specific to.
	// Empty slice means "all dialects" (generic grammar).
	Dialects() []pnr.Dialect

	// QuickCheck performs a fast string check before expensive regex.
	// Returns true if the text MIGHT contain something for this pass.
	// This should use strings.Contains/HasPrefix, NOT regex.
	QuickCheck(text string) bool

	// Priority determines order within the dialect-specific and generic
	// groups. Lower number = run first.
	Priority() int

	// Extract runs the grammar, returns nil if nothing matched.
	Extract(text string) *Extraction
}

// Registry holds all registered passes.
type Registry struct {
	mu sync.RWMutex

	// byDialect maps a dialect to its specific passes, sorted by Priority.
	byDialect map[pnr.Dialect][]Pass

	// generic holds passes that run for every dialect.
	generic []Pass

	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		byDialect: make(map[pnr.Dialect][]Pass),
	}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a pass to the default registry.
// Called during init() in each grammar package.
func Register(p Pass) {
	defaultRegistry.Register(p)
}

// Register adds a pass to the registry.
func (r *Registry) Register(p Pass) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dialects := p.Dialects()
	if len(dialects) == 0 {
		r.generic = append(r.generic, p)
	} else {
		for _, d := range dialects {
			r.byDialect[d] = append(r.byDialect[d], p)
		}
	}
	r.sorted = false
}

// Sort sorts all pass slices by priority. Dispatch sorts lazily, so calling
// this up front only moves the cost out of the first parse.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
}

func (r *Registry) sortLocked() {
	if r.sorted {
		return
	}
	for d := range r.byDialect {
		passes := r.byDialect[d]
		sort.SliceStable(passes, func(i, j int) bool {
			return passes[i].Priority() < passes[j].Priority()
		})
	}
	sort.SliceStable(r.generic, func(i, j int) bool {
		return r.generic[i].Priority() < r.generic[j].Priority()
	})
	r.sorted = true
}

// Ordered returns the passes that apply to dialect in execution order:
// dialect-specific passes first, then generic ones.
func (r *Registry) Ordered(dialect pnr.Dialect) []Pass {
	r.mu.RLock()
	if !r.sorted {
		r.mu.RUnlock()
		r.Sort()
		r.mu.RLock()
	}
	defer r.mu.RUnlock()

	out := make([]Pass, 0, len(r.byDialect[dialect])+len(r.generic))
	out = append(out, r.byDialect[dialect]...)
	out = append(out, r.generic...)
	return out
}

// Dispatch runs every applicable pass over text and returns the non-empty
// extractions in execution order.
func (r *Registry) Dispatch(dialect pnr.Dialect, text string) []*Extraction {
	var results []*Extraction
	for _, p := range r.Ordered(dialect) {
		if !p.QuickCheck(text) {
			continue
		}
		if ext := p.Extract(text); !ext.Empty() {
			if ext.Pass == "" {
				ext.Pass = p.Name()
			}
			results = append(results, ext)
		}
	}
	return results
}

// RegisteredDialects returns all dialects that have specific passes.
func (r *Registry) RegisteredDialects() []pnr.Dialect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dialects := make([]pnr.Dialect, 0, len(r.byDialect))
	for d := range r.byDialect {
		dialects = append(dialects, d)
	}
	sort.Slice(dialects, func(i, j int) bool { return dialects[i] < dialects[j] })
	return dialects
}

// PassCount returns the total number of unique registered passes.
// Passes registered for multiple dialects are only counted once.
func (r *Registry) PassCount() int {
	return len(r.AllPasses())
}

// AllPasses returns every registered pass once, generic passes first.
func (r *Registry) AllPasses() []Pass {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Pass

	for _, p := range r.generic {
		if !seen[p.Name()] {
			seen[p.Name()] = true
			result = append(result, p)
		}
	}
	for _, d := range pnr.Dialects {
		for _, p := range r.byDialect[d] {
			if !seen[p.Name()] {
				seen[p.Name()] = true
				result = append(result, p)
			}
		}
	}

	return result
}
