// Package timetoken converts GDS time tokens to minutes since midnight.
//
// Two grammars are accepted:
//
//	HHMM[A|P]   12-hour, e.g. 0350P, 915A (3 digit hours are zero-filled)
//	HHMM[+1]    24-hour, e.g. 1550, 0200+1
//
// A "+1" next-day marker is accepted but folded into the same-day value; no
// day offset is tracked. Callers compensate with the midnight wrap rule.
package timetoken

import (
	"regexp"
	"strconv"
	"strings"
)

const MinutesPerDay = 1440

var (
	twelveHourRe     = regexp.MustCompile(`^(\d{3,4})([AP])$`)
	twentyFourHourRe = regexp.MustCompile(`^(\d{4})(?:\+1)?$`)
)

// Minutes returns the minutes since midnight for token, in [0, 1440).
// ok is false when the token matches neither grammar or carries
// out-of-range digits (hour > 23, minute > 59, or a 12-hour clock hour
// outside 0-12). A false result means "unknown", never zero.
func Minutes(token string) (minutes int, ok bool) {
	token = strings.ToUpper(strings.TrimSpace(token))

	if m := twelveHourRe.FindStringSubmatch(token); m != nil {
		raw := m[1]
		if len(raw) == 3 {
			raw = "0" + raw
		}
		hour, _ := strconv.Atoi(raw[:2])
		minute, _ := strconv.Atoi(raw[2:])
		if hour > 12 || minute > 59 {
			return 0, false
		}
		switch {
		case m[2] == "A" && hour == 12:
			hour = 0
		case m[2] == "P" && hour != 12:
			hour += 12
		}
		return hour*60 + minute, true
	}

	if m := twentyFourHourRe.FindStringSubmatch(token); m != nil {
		hour, _ := strconv.Atoi(m[1][:2])
		minute, _ := strconv.Atoi(m[1][2:])
		if hour > 23 || minute > 59 {
			return 0, false
		}
		return hour*60 + minute, true
	}

	return 0, false
}

// NextDay reports whether the token carries a "+1" marker.
func NextDay(token string) bool {
	return strings.HasSuffix(strings.TrimSpace(token), "+1")
}

// WrapDelta applies the midnight-crossing correction to a time difference:
// values of -720 or less gain a day. Positive differences are never reduced,
// so a later schedule is always reported as a later schedule.
func WrapDelta(delta int) int {
	if delta <= -MinutesPerDay/2 {
		delta += MinutesPerDay
	}
	return delta
}

// Gap returns the non-negative minutes from one time of day to a later one,
// wrapping through midnight when the later time is numerically smaller.
func Gap(from, to int) int {
	gap := to - from
	if gap < 0 {
		gap += MinutesPerDay
	}
	return gap
}

// Display formats minutes as "Xh Ym".
func Display(minutes int) string {
	return strconv.Itoa(minutes/60) + "h " + strconv.Itoa(minutes%60) + "m"
}
