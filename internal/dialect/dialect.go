// Package dialect classifies reservation text by the GDS that produced it.
package dialect

import (
	"regexp"
	"strings"

	"pnr_parser/internal/pnr"
)

// Keyword sets are disjoint and checked in priority order.
var (
	SabreKeywords      = []string{"WETR*", "PCC:", "/DC", "PLT", "FCI"}
	AmadeusKeywords    = []string{"TST/", "FA PAX", "NONEND", "INVOL", "FE PAX"}
	TravelportKeywords = []string{"WAIVER:", "ENDORSEMENT:", "WORLDSPAN", "GALILEO", "APOLLO"}
)

var (
	sabreWaiverRe   = regexp.MustCompile(`/DC[A-Z0-9]{2,3}\*[A-Z0-9]{4,10}/E`)
	amadeusReasonRe = regexp.MustCompile(`\bRF-[A-Z0-9]{3,12}\b`)
)

// Detect returns the GDS dialect of text. The result only decides which
// dialect-specific grammar runs first; generic grammars always run.
func Detect(text string) pnr.Dialect {
	upperText := strings.ToUpper(text)

	switch {
	case containsAny(upperText, SabreKeywords):
		return pnr.DialectSabre
	case containsAny(upperText, AmadeusKeywords):
		return pnr.DialectAmadeus
	case containsAny(upperText, TravelportKeywords):
		return pnr.DialectTravelport
	case sabreWaiverRe.MatchString(upperText):
		return pnr.DialectSabre
	case amadeusReasonRe.MatchString(upperText):
		return pnr.DialectAmadeus
	}

	return pnr.DialectUnknown
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
