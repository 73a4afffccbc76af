// Package schedchange derives the reportable schedule change and the
// layover from extracted itinerary segments.
package schedchange

import (
	"pnr_parser/internal/pnr"
	"pnr_parser/internal/status"
	"pnr_parser/internal/timetoken"
)

// Compute returns the schedule change to report, or nil.
//
// An SC declaration takes precedence: paired with an active segment on the
// same route key it is reported with deltas, otherwise the bare declaration
// is reported without deltas. Without a declaration every cancelled x active
// pair sharing a route key is a candidate and the one with the greatest max
// delta wins, the first encountered on ties.
func Compute(segments []pnr.Segment, decl *pnr.Declaration) *pnr.ScheduleChange {
	if decl != nil {
		for _, seg := range segments {
			if seg.Key() == decl.Key() && status.IsActive(seg.StatusCode) {
				return build(decl.Key(), decl.DepartureToken, decl.ArrivalToken, seg, pnr.DerivedFromSCLine)
			}
		}
		return &pnr.ScheduleChange{
			Date:             decl.Date,
			Origin:           decl.Origin,
			Destination:      decl.Destination,
			OldDeparture:     decl.DepartureToken,
			OldArrival:       decl.ArrivalToken,
			DerivationMethod: pnr.DerivedFromSCLineBare,
		}
	}

	return bestPair(segments)
}

// bestPair evaluates every cancelled x active pair per route key. Keys are
// visited in first-appearance order, and segments within a key in text order.
func bestPair(segments []pnr.Segment) *pnr.ScheduleChange {
	var order []pnr.RouteKey
	groups := make(map[pnr.RouteKey][]pnr.Segment)
	for _, seg := range segments {
		k := seg.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], seg)
	}

	var best *pnr.ScheduleChange
	for _, k := range order {
		group := groups[k]
		for _, old := range group {
			if !status.IsCancelled(old.StatusCode) {
				continue
			}
			for _, cur := range group {
				if !status.IsActive(cur.StatusCode) {
					continue
				}
				candidate := build(k, old.DepartureToken, old.ArrivalToken, cur, pnr.DerivedFromSegmentPairs)
				if outranks(candidate, best) {
					best = candidate
				}
			}
		}
	}

	return best
}

// outranks reports whether a beats b. Unknown max deltas rank below any
// known value; equal values never displace the incumbent.
func outranks(a, b *pnr.ScheduleChange) bool {
	if b == nil {
		return true
	}
	if a.MaxDeltaMinutes == nil {
		return false
	}
	if b.MaxDeltaMinutes == nil {
		return true
	}
	return *a.MaxDeltaMinutes > *b.MaxDeltaMinutes
}

func build(k pnr.RouteKey, oldDep, oldArr string, cur pnr.Segment, method string) *pnr.ScheduleChange {
	change := &pnr.ScheduleChange{
		Date:                  k.Date,
		Origin:                k.Origin,
		Destination:           k.Destination,
		OldDeparture:          oldDep,
		OldArrival:            oldArr,
		NewDeparture:          cur.DepartureToken,
		NewArrival:            cur.ArrivalToken,
		DepartureDeltaMinutes: Delta(oldDep, cur.DepartureToken),
		ArrivalDeltaMinutes:   Delta(oldArr, cur.ArrivalToken),
		DerivationMethod:      method,
	}
	change.MaxDeltaMinutes = maxKnown(change.DepartureDeltaMinutes, change.ArrivalDeltaMinutes)
	return change
}

// Delta returns the wrapped difference newToken - oldToken in minutes, or
// nil when either token cannot be normalised.
func Delta(oldToken, newToken string) *int {
	oldMin, ok := timetoken.Minutes(oldToken)
	if !ok {
		return nil
	}
	newMin, ok := timetoken.Minutes(newToken)
	if !ok {
		return nil
	}
	d := timetoken.WrapDelta(newMin - oldMin)
	return &d
}

func maxKnown(a, b *int) *int {
	var m int
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		m = *b
	case b == nil, *a >= *b:
		m = *a
	default:
		m = *b
	}
	return &m
}

// Layover returns the gap between the first segment's arrival and the
// second segment's departure. Only the first two segments are considered.
// It returns nil with fewer than two segments or an unreadable time token.
func Layover(segments []pnr.Segment) *int {
	if len(segments) < 2 {
		return nil
	}
	arr, ok := timetoken.Minutes(segments[0].ArrivalToken)
	if !ok {
		return nil
	}
	dep, ok := timetoken.Minutes(segments[1].DepartureToken)
	if !ok {
		return nil
	}
	gap := timetoken.Gap(arr, dep)
	return &gap
}
