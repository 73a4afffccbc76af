// Package patterns provides shared regex patterns and helper functions for PNR parsing.
// This file contains grok-style base patterns for use with the Compiler.

package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax.
var BasePatterns = map[string]string{
	// Itinerary row number ("1", " 2", "10").
	"ROW": `\d{1,2}`,

	// Marketing carrier: two characters, at least one a letter in practice (AA, B6, 9W).
	"CARRIER": `[A-Z0-9]{2}`,
	"FLTNUM":  `\d{1,4}`,
	"LEG":     `[A-Z]`,

	// Travel date without year, e.g. 10JAN.
	"DDMON": `\d{2}(?:JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)`,

	// Optional day-of-week marker some displays print after the date:
	// a digit (Amadeus) or a single letter (Sabre: M T W Q F J S).
	"DOW": `[1-7MTWQFJS]`,

	// IATA airport / city code.
	"IATA": `[A-Z]{3}`,

	// Segment status codes.
	"STATUS24": `[A-Z]{2}\d?`,
	"STATUS12": `[A-Z]{2,6}\d?`,

	// Time tokens.
	"TIME24":  `\d{4}(?:\+1)?`, // 1550, 0200+1
	"TIME12":  `\d{3,4}[AP]`,   // 0350P, 915A
	"TIMEANY": `\d{3,4}[AP]?(?:\+1)?`,

	// Ticket dates, e.g. 05JAN24 or 5JAN2024.
	"TKTDATE": `\d{1,2}[A-Z]{3}\d{2,4}`,
}
