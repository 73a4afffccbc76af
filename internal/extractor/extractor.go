// Package extractor composes the grammars, classifiers and computations
// into one parse of a reservation dump.
// This package performs no I/O and can be used from any service layer.
package extractor

import (
	"math"
	"time"

	"pnr_parser/internal/dialect"
	"pnr_parser/internal/issues"
	"pnr_parser/internal/patterns"
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/registry"
	"pnr_parser/internal/schedchange"
	"pnr_parser/internal/signature"
	"pnr_parser/internal/timetoken"

	// Register the segment grammars.
	_ "pnr_parser/internal/parsers"
)

const isoDate = "2006-01-02"

type options struct {
	now      func() time.Time
	registry *registry.Registry
}

// Option configures a single Parse or Trace call.
type Option func(*options)

// WithNow fixes the clock used for issue-date-relative fields.
func WithNow(now time.Time) Option {
	return func(o *options) {
		o.now = func() time.Time { return now }
	}
}

// WithRegistry runs the passes of r instead of the default registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, registry: registry.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parse extracts a Result from OCR'd reservation text. It never fails: a
// miss leaves the corresponding field empty, and empty or unrelated text
// yields a well-formed, mostly empty Result.
func Parse(text string, opts ...Option) (result *pnr.Result) {
	o := buildOptions(opts)

	defer func() {
		if r := recover(); r != nil {
			result = emptyResult()
		}
	}()

	result = emptyResult()
	result.GDSDialect = dialect.Detect(text)

	// Segments and the SC declaration.
	var decl *pnr.Declaration
	for _, ext := range o.registry.Dispatch(result.GDSDialect, text) {
		result.Segments = append(result.Segments, ext.Segments...)
		if decl == nil && ext.Declaration != nil {
			decl = ext.Declaration
		}
	}
	for i := range result.Segments {
		result.Segments[i].Ordinal = i
	}

	// Identity.
	result.RecordLocator = patterns.ExtractRecordLocator(text)
	result.TicketNumber = patterns.ExtractTicketNumber(text)
	result.PlatingCode = patterns.PlatingCode(result.TicketNumber)

	statuses := patterns.ExtractStatusTokens(text)
	for _, seg := range result.Segments {
		statuses = append(statuses, seg.StatusCode)
	}
	result.StatusCodes = patterns.UniqueSorted(statuses)

	// Schedule change and layover.
	result.ScheduleChange = schedchange.Compute(result.Segments, decl)
	if lay := schedchange.Layover(result.Segments); lay != nil {
		result.LayoverMinutes = lay
		result.LayoverDisplay = timetoken.Display(*lay)
	}

	// Ticket issue date.
	applyIssueDate(result, text, o.now())

	// Signatures and issue classification.
	result.EndorsementSignatures = signature.Extract(text)
	result.AirlineSignedOff = len(result.EndorsementSignatures) > 0 ||
		signature.WaiverPresent(text) ||
		signature.KeywordPresent(text)

	class := issues.Classify(text)
	result.IssueTokens = class.Tokens
	result.PrimaryIssueLabel = class.Primary
	result.ReasonCodes = issues.ReasonCodes(text)

	if sc := result.ScheduleChange; sc != nil && sc.MaxDeltaMinutes != nil {
		result.Eligibility3Hour = *sc.MaxDeltaMinutes >= pnr.ThreeHourThresholdMinutes
	}

	return result
}

// emptyResult returns a Result whose set-valued fields are empty, not nil.
func emptyResult() *pnr.Result {
	return &pnr.Result{
		GDSDialect:            pnr.DialectUnknown,
		StatusCodes:           []string{},
		EndorsementSignatures: []string{},
		Segments:              []pnr.Segment{},
		IssueTokens:           []string{},
		ReasonCodes:           []string{},
	}
}

// applyIssueDate fills the issue date fields. A ticket is valid for one year
// from issue; days until expiration never goes below zero.
func applyIssueDate(result *pnr.Result, text string, now time.Time) {
	raw := patterns.ExtractIssueDate(text)
	if raw == "" {
		return
	}
	result.IssueDateRaw = raw

	issued, ok := patterns.ParseTicketDate(raw)
	if !ok {
		return
	}
	result.IssueDateISO = issued.Format(isoDate)

	today := truncateDay(now)
	since := daysBetween(issued, today)
	until := daysBetween(today, issued.AddDate(1, 0, 0))
	if until < 0 {
		until = 0
	}
	result.DaysSinceIssue = &since
	result.DaysUntilExpiration = &until
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// TraceReport explains how a text was parsed, pass by pass.
type TraceReport struct {
	Dialect       pnr.Dialect             `json:"gds_dialect"`
	PassCount     int                     `json:"pass_count"`
	DialectPasses []pnr.Dialect           `json:"dialect_passes"`
	Passes        []*registry.TraceResult `json:"passes"`
	Segments      []SegmentTrace          `json:"segments"`
}

// SegmentTrace shows how the time tokens of one extracted segment were read.
type SegmentTrace struct {
	Ordinal          int    `json:"ordinal"`
	Grammar          string `json:"grammar"`
	Route            string `json:"route"`
	StatusCode       string `json:"status_code"`
	Departure        string `json:"departure"`
	Arrival          string `json:"arrival"`
	DepartureMinutes *int   `json:"departure_minutes,omitempty"`
	ArrivalMinutes   *int   `json:"arrival_minutes,omitempty"`
	ArrivesNextDay   bool   `json:"arrives_next_day"`
}

// Trace runs every traceable pass over text, including passes for other
// dialects, and reports their quick-check and per-format outcomes along with
// the segments the dispatched passes produced.
func Trace(text string, opts ...Option) *TraceReport {
	o := buildOptions(opts)

	report := &TraceReport{
		Dialect:       dialect.Detect(text),
		PassCount:     o.registry.PassCount(),
		DialectPasses: o.registry.RegisteredDialects(),
		Segments:      []SegmentTrace{},
	}
	for _, p := range o.registry.AllPasses() {
		if tp, ok := p.(registry.Traceable); ok {
			report.Passes = append(report.Passes, tp.ExtractWithTrace(text))
		}
	}

	for _, ext := range o.registry.Dispatch(report.Dialect, text) {
		for _, seg := range ext.Segments {
			st := SegmentTrace{
				Ordinal:        len(report.Segments),
				Grammar:        seg.Grammar,
				Route:          seg.Date + " " + seg.Origin + seg.Destination,
				StatusCode:     seg.StatusCode,
				Departure:      seg.DepartureToken,
				Arrival:        seg.ArrivalToken,
				ArrivesNextDay: timetoken.NextDay(seg.ArrivalToken),
			}
			if m, ok := timetoken.Minutes(seg.DepartureToken); ok {
				st.DepartureMinutes = &m
			}
			if m, ok := timetoken.Minutes(seg.ArrivalToken); ok {
				st.ArrivalMinutes = &m
			}
			report.Segments = append(report.Segments, st)
		}
	}
	return report
}
