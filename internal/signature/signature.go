// Package signature finds airline authorisation (waiver / endorsement)
// signatures in reservation text.
package signature

import (
	"regexp"
	"strings"

	"pnr_parser/internal/patterns"
)

// Named signature forms. Every form is searched independently and all
// matches are kept.
var (
	// Sabre: /DCAA*ABC123/E
	SabreWaiverRe = regexp.MustCompile(`/DC[A-Z0-9]{2,3}\*[A-Z0-9]{4,10}/E`)
	// Amadeus: FE PAX NONEND/WAIVER CODE SKCHG123
	AmadeusNonendRe = regexp.MustCompile(`NONEND[ A-Z/\-]{0,20}?WAIVER[ :/\-]*(?:CODE[ :/\-]*)?([A-Z0-9]{3,15})\b`)
	// Generic reason code: RF-SKCHG
	ReasonCodeRe = regexp.MustCompile(`\bRF-[A-Z0-9]{4,10}\b`)
	// Generic labelled waiver: WAIVER: ABC123
	WaiverLabelRe = regexp.MustCompile(`\bWAIVER[:\s]+([A-Z0-9]{3,15})\b`)
)

// directWaiverPatterns is the pattern list the intake forms use to decide
// whether a waiver is present at all.
var directWaiverPatterns = []*regexp.Regexp{
	SabreWaiverRe,
	regexp.MustCompile(`RF-[A-Z0-9]{4,10}`),
	regexp.MustCompile(`WAIVER[:\s]+[A-Z0-9]{3,15}`),
	regexp.MustCompile(`ENDORSEMENT[:\s]+RF-[A-Z0-9]{3,15}`),
}

// keywordRe matches bare authorisation keywords.
var keywordRe = regexp.MustCompile(`\b(?:WAIVER|ENDORSEMENT|APPROVAL)\b`)

// Extract returns the text of every signature found, as a sorted,
// de-duplicated set. Runs of whitespace inside a match are collapsed to one
// space.
func Extract(text string) []string {
	upperText := patterns.Normalise(text)
	var found []string

	for _, re := range []*regexp.Regexp{SabreWaiverRe, AmadeusNonendRe, ReasonCodeRe, WaiverLabelRe} {
		for _, m := range re.FindAllString(upperText, -1) {
			found = append(found, patterns.CollapseSpace(m))
		}
	}

	return patterns.UniqueSorted(found)
}

// WaiverPresent reports whether any of the direct waiver patterns match.
func WaiverPresent(text string) bool {
	upperText := strings.ToUpper(text)
	for _, re := range directWaiverPatterns {
		if re.MatchString(upperText) {
			return true
		}
	}
	return false
}

// KeywordPresent reports whether a WAIVER, ENDORSEMENT or APPROVAL keyword
// appears in text.
func KeywordPresent(text string) bool {
	return keywordRe.MatchString(strings.ToUpper(text))
}
