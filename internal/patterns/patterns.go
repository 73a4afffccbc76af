// Package patterns provides shared regex patterns and helper functions for PNR parsing.
package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// Identity patterns.
var (
	// RecordLocatorLabelPattern matches a 6 character locator after an explicit label,
	// e.g. "RECORD LOCATOR: ABC123", "RLOC ABC123", "PNR-ABC123".
	RecordLocatorLabelPattern = regexp.MustCompile(`\b(?:RECORD\s+LOCATOR|REC\s*LOC|RLOC|PNR|CONFIRMATION(?:\s+(?:NO|NUMBER))?|CONF\s*(?:NO|#)?)\s*[:#.\-]?\s*([A-Z0-9]{6})\b`)
	// RecordLocatorRPPattern matches the locator at the end of an Amadeus RP header line.
	// RP/NYC1S2195/NYC1S2195            AA/SU  10JAN24/1200Z   XYZ789
	RecordLocatorRPPattern = regexp.MustCompile(`(?m)^\s*RP/\S+.*\s([A-Z0-9]{6})\s*$`)

	// TicketLabelPattern matches a labelled 13 digit ticket number, allowing a
	// dash or space after the 3 digit plating prefix.
	TicketLabelPattern = regexp.MustCompile(`\b(?:E-?TKT|TKT|TICKET)(?:\s*(?:NBR|NO|NUMBER|#))?[\s.:#]*(\d{3})[-\s]?(\d{10})\b`)
	// TicketFAPattern matches the Amadeus FA element: "FA PAX 016-1234567890/ETUA/...".
	TicketFAPattern = regexp.MustCompile(`\bFA\s+PAX\s+(\d{3})-?(\d{10})\b`)
	// TicketBarePattern matches any stand-alone 13 digit number.
	TicketBarePattern = regexp.MustCompile(`\b(\d{3})-?(\d{10})\b`)
)

// Ticket issue date patterns.
var (
	IssuedPattern = regexp.MustCompile(`\bISSUED[:\s]*(\d{1,2}[A-Z]{3}\d{2,4})\b`)
	// DTPattern matches the Amadeus "DT" date element of a TST display.
	DTPattern = regexp.MustCompile(`\bDT[:\s]*(\d{1,2}[A-Z]{3}\d{2,4})\b`)
)

// StatusTokenPattern matches stand-alone status codes printed outside
// itinerary lines. A trailing digit is required so that carrier codes such
// as TK or UN are not mistaken for statuses.
var StatusTokenPattern = regexp.MustCompile(`\b(?:HK|HX|TK|SS|UN|UC|SC)\d\b`)

// whitespaceRe collapses runs of whitespace inside extracted values.
var whitespaceRe = regexp.MustCompile(`\s+`)

// CollapseSpace upper-cases s, trims it and reduces internal whitespace to single spaces.
func CollapseSpace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(strings.ToUpper(s)), " ")
}

// UniqueSorted returns the upper-cased, de-duplicated, sorted values.
// The result is never nil so it serialises as an empty JSON array.
func UniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = CollapseSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
