// Package issues classifies the disruption described in reservation text
// and collects explicit reason codes.
package issues

import (
	"regexp"
	"sort"
	"strings"

	"pnr_parser/internal/patterns"
)

// Category is one disruption label with the pattern that detects it.
type Category struct {
	Label   string
	Pattern *regexp.Regexp
}

// Categories are evaluated independently. Their order is the priority used
// for the primary label, regardless of where matches occur in the text.
var Categories = []Category{
	{"schedule_change", regexp.MustCompile(`\b(?:SCHEDULE\s*CHANGE|SCHED\s*CHG|SKED\s*CHG|SKCHG|SCH\s*CHG|TIME\s*CHANGE|RETIMED?)\b`)},
	{"cancellation", regexp.MustCompile(`\b(?:CANCEL(?:L?ED|LATION|S)?|CNLD|CNCL|CXLD|CNX)\b`)},
	{"delay", regexp.MustCompile(`\b(?:DELAY(?:ED|S)?|DLY|DLYD)\b`)},
	{"denied_boarding", regexp.MustCompile(`\b(?:DENIED\s+BOARDING|OVERSOLD|OVERBOOK(?:ED|ING)?|BUMPED|IDB)\b`)},
	{"misconnect", regexp.MustCompile(`\b(?:MISCONNECT(?:ION|ED)?|MISSED\s+CONN(?:ECTION|X)?|MISCX)\b`)},
	{"weather", regexp.MustCompile(`\b(?:WEATHER|WX|STORM|SNOW|HURRICANE|TYPHOON|FOG)\b`)},
	{"maintenance", regexp.MustCompile(`\b(?:MAINTENANCE|MAINT|MECHANICAL|MECH|TECHNICAL|AOG)\b`)},
	{"atc", regexp.MustCompile(`\b(?:ATC|AIR\s+TRAFFIC(?:\s+CONTROL)?|GROUND\s+STOP|FLOW\s+CONTROL)\b`)},
	{"security", regexp.MustCompile(`\b(?:SECURITY|EVACUAT(?:ION|ED)|THREAT)\b`)},
	{"involuntary", regexp.MustCompile(`\b(?:INVOL(?:UNTARY)?|INVOLUNTARILY)\b`)},
}

// reasonCodeRe matches explicit reason codes such as RF-SKCHG.
var reasonCodeRe = regexp.MustCompile(`\bRF-[A-Z0-9]{3,12}\b`)

// Classification is the outcome of Classify.
type Classification struct {
	Tokens  []string // Sorted set of matched labels.
	Primary string   // First matching label in category order, or "".
}

// Classify evaluates every category against text.
func Classify(text string) Classification {
	upperText := strings.ToUpper(text)
	var labels []string
	primary := ""

	for _, c := range Categories {
		if !c.Pattern.MatchString(upperText) {
			continue
		}
		if primary == "" {
			primary = c.Label
		}
		labels = append(labels, c.Label)
	}

	sort.Strings(labels)
	if labels == nil {
		labels = []string{}
	}
	return Classification{Tokens: labels, Primary: primary}
}

// ReasonCodes returns the sorted set of RF- reason codes in text.
func ReasonCodes(text string) []string {
	return patterns.UniqueSorted(reasonCodeRe.FindAllString(patterns.Normalise(text), -1))
}
