// Package patterns provides extraction functions for PNR parsing.
package patterns

import (
	"regexp"
	"time"
)

// ExtractRecordLocator returns the airline record locator, or "".
func ExtractRecordLocator(text string) string {
	upperText := Normalise(text)

	if m := RecordLocatorLabelPattern.FindStringSubmatch(upperText); len(m) > 1 {
		return m[1]
	}
	if m := RecordLocatorRPPattern.FindStringSubmatch(upperText); len(m) > 1 {
		return m[1]
	}

	return ""
}

// ExtractTicketNumber returns the 13 digit ticket number without separators, or "".
// Labelled numbers win over the Amadeus FA element, which wins over bare digits.
func ExtractTicketNumber(text string) string {
	upperText := Normalise(text)

	for _, re := range []*regexp.Regexp{TicketLabelPattern, TicketFAPattern, TicketBarePattern} {
		if m := re.FindStringSubmatch(upperText); len(m) > 2 {
			return m[1] + m[2]
		}
	}

	return ""
}

// PlatingCode returns the 3 digit validating-carrier prefix of a ticket number.
func PlatingCode(ticketNumber string) string {
	if len(ticketNumber) < 3 {
		return ""
	}
	return ticketNumber[:3]
}

// ExtractIssueDate returns the raw issue date token: an explicit ISSUED
// token first, otherwise an Amadeus DT token.
func ExtractIssueDate(text string) string {
	upperText := Normalise(text)

	if m := IssuedPattern.FindStringSubmatch(upperText); len(m) > 1 {
		return m[1]
	}
	if m := DTPattern.FindStringSubmatch(upperText); len(m) > 1 {
		return m[1]
	}

	return ""
}

// ParseTicketDate parses a DDMONYY or DDMONYYYY token (day may be one digit).
func ParseTicketDate(raw string) (time.Time, bool) {
	layouts := []string{"2Jan06", "2Jan2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ExtractStatusTokens returns stand-alone status codes found anywhere in text.
func ExtractStatusTokens(text string) []string {
	return StatusTokenPattern.FindAllString(Normalise(text), -1)
}
