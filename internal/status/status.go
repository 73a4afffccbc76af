// Package status buckets GDS segment status codes.
package status

import (
	"regexp"
	"strings"
)

// Class is the pairing bucket of a status code.
type Class int

const (
	Neither Class = iota
	Cancelled
	Active
)

func (c Class) String() string {
	switch c {
	case Cancelled:
		return "cancelled"
	case Active:
		return "active"
	}
	return "neither"
}

var (
	// HX: cancelled by airline, UN: unable/flight not operating,
	// UC: unable/waitlist closed, US: unable to sell, NO: no action taken.
	cancelledRe = regexp.MustCompile(`^(?:HX|UN|UC|US|NO)\d?$`)
	// HK: holds confirmed, OK: confirmed, HS: have sold, TKOK: schedule change accepted.
	activeRe = regexp.MustCompile(`^(?:HK|OK|HS|TKOK)\d?$`)
)

// Classify returns the class of a status code such as "HX1" or "HK".
func Classify(code string) Class {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case cancelledRe.MatchString(code):
		return Cancelled
	case activeRe.MatchString(code):
		return Active
	}
	return Neither
}

// IsCancelled reports whether code is a cancelled-class status.
func IsCancelled(code string) bool { return Classify(code) == Cancelled }

// IsActive reports whether code is an active-class status.
func IsActive(code string) bool { return Classify(code) == Active }
