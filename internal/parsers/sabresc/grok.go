// Package sabresc provides grok-style pattern definitions for the Sabre
// schedule-change ("SC") summary line.
package sabresc

import "pnr_parser/internal/patterns"

// Format names.
const (
	FormatSegment  = "sc_segment"
	FormatPrefixed = "sc_prefixed"
)

// Formats defines the SC line shapes. The times on an SC line are the
// originally booked ones; the replacement flight is a separate segment.
var Formats = []patterns.Format{
	// SC as the segment status, e.g.
	//   2 BA 117Y 10JAN 3 JFKLHR SC1  0800  2000
	//   10JAN JFKLHR SC 0800A 0800P
	{
		Name: FormatSegment,
		Pattern: `(?m)^[ \t*]*(?:{ROW}[ \t.]+)?(?:(?P<carrier>{CARRIER})[ \t*]*(?P<flight>{FLTNUM})[ \t]?{LEG}?[ \t]+)?` +
			`(?P<date>{DDMON})(?:[ \t]+{DOW})?` +
			`[ \t]+(?P<origin>{IATA})[ \t]*(?P<destination>{IATA})` +
			`[ \t]+SC\d?` +
			`[ \t]+(?P<dep>{TIMEANY})[ \t]+(?P<arr>{TIMEANY})\b`,
		Fields: []string{"carrier", "flight", "date", "origin", "destination", "dep", "arr"},
	},
	// SC as a line prefix, e.g.
	//   SC BA117 10JAN JFKLHR 0800 2000
	{
		Name: FormatPrefixed,
		Pattern: `(?m)^[ \t*]*SC\d?[ \t:]+(?:(?P<carrier>{CARRIER})[ \t*]*(?P<flight>{FLTNUM})[ \t]?{LEG}?[ \t]+)?` +
			`(?P<date>{DDMON})` +
			`[ \t]+(?P<origin>{IATA})[ \t]*(?P<destination>{IATA})` +
			`[ \t]+(?P<dep>{TIMEANY})[ \t]+(?P<arr>{TIMEANY})\b`,
		Fields: []string{"carrier", "flight", "date", "origin", "destination", "dep", "arr"},
	},
}
