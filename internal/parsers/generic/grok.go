// Package generic provides grok-style pattern definitions for the
// dialect-agnostic itinerary line grammars.
package generic

import "pnr_parser/internal/patterns"

// Format names.
const (
	Format24h = "segment_24h"
	Format12h = "segment_12h"
)

// Formats defines the known itinerary line shapes. Both anchor on the
// date / city pair / time token cluster, the most stable part of an OCR'd
// GDS line; everything before the date is permissive.
var Formats = []patterns.Format{
	// 24-hour clock, e.g.
	//   1 BA 117Y 10JAN 3 JFKLHR HK1   0800  2000
	//   2  LH 400 C 11JAN 4 FRA JFK HX1  1000  1300+1
	{
		Name: Format24h,
		Pattern: `(?m)^[ \t*]*(?P<row>{ROW})[ \t.]+(?P<carrier>{CARRIER})[ \t*]*(?P<flight>{FLTNUM})[ \t]?(?P<leg>{LEG})?` +
			`[ \t]+(?P<date>{DDMON})(?:[ \t]+{DOW})?` +
			`[ \t]+(?P<origin>{IATA})[ \t]*(?P<destination>{IATA})` +
			`[ \t]+(?P<status>{STATUS24})` +
			`[ \t]+(?P<dep>{TIME24})[ \t]+(?P<arr>{TIME24})\b`,
		Fields: []string{"row", "carrier", "flight", "leg", "date", "origin", "destination", "status", "dep", "arr"},
	},
	// 12-hour clock with A/P suffix and longer status codes, e.g.
	//   1 AA 100Y 10JAN Q JFKLAX TKOK1  0800A  1115A
	{
		Name: Format12h,
		Pattern: `(?m)^[ \t*]*(?P<row>{ROW})[ \t.]+(?P<carrier>{CARRIER})[ \t*]*(?P<flight>{FLTNUM})[ \t]?(?P<leg>{LEG})?` +
			`[ \t]+(?P<date>{DDMON})(?:[ \t]+{DOW})?` +
			`[ \t]+(?P<origin>{IATA})[ \t]*(?P<destination>{IATA})` +
			`[ \t]+(?P<status>{STATUS12})` +
			`[ \t]+(?P<dep>{TIME12})[ \t]+(?P<arr>{TIME12})\b`,
		Fields: []string{"row", "carrier", "flight", "leg", "date", "origin", "destination", "status", "dep", "arr"},
	},
}
