// Package pnr provides the passenger name record types shared by the
// extraction grammars, the parse engine and the service layers.
package pnr

// Dialect identifies the GDS family a reservation dump came from.
type Dialect string

const (
	DialectSabre      Dialect = "sabre"
	DialectAmadeus    Dialect = "amadeus"
	DialectTravelport Dialect = "travelport"
	DialectUnknown    Dialect = "unknown"
)

// Dialects lists every dialect in detection priority order.
var Dialects = []Dialect{DialectSabre, DialectAmadeus, DialectTravelport, DialectUnknown}

// Segment is one flight leg extracted from an itinerary line.
// Date keeps the raw DDMON token; the year is never resolved.
type Segment struct {
	Carrier        string `json:"carrier"`
	FlightNumber   string `json:"flight_number"`
	Date           string `json:"date"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	StatusCode     string `json:"status_code"`
	DepartureToken string `json:"departure_token"`
	ArrivalToken   string `json:"arrival_token"`
	Ordinal        int    `json:"ordinal"`
	Grammar        string `json:"grammar,omitempty"` // Name of the grammar that produced the segment.
}

// RouteKey groups segments flown on the same date between the same airports.
type RouteKey struct {
	Date        string
	Origin      string
	Destination string
}

// Key returns the segment's route key.
func (s Segment) Key() RouteKey {
	return RouteKey{Date: s.Date, Origin: s.Origin, Destination: s.Destination}
}

// Declaration is an explicit schedule-change summary line (Sabre "SC").
// Its times are the originally booked times.
type Declaration struct {
	Carrier        string `json:"carrier,omitempty"`
	FlightNumber   string `json:"flight_number,omitempty"`
	Date           string `json:"date"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureToken string `json:"departure_token"`
	ArrivalToken   string `json:"arrival_token"`
}

// Key returns the declaration's route key.
func (d Declaration) Key() RouteKey {
	return RouteKey{Date: d.Date, Origin: d.Origin, Destination: d.Destination}
}

// Derivation methods reported on a ScheduleChange.
const (
	DerivedFromSCLine       = "sabre_sc_line"
	DerivedFromSCLineBare   = "sabre_sc_line_unpaired"
	DerivedFromSegmentPairs = "segment_pair"
)

// ScheduleChange describes the reportable airline-initiated time change.
// Delta fields are nil when a time token could not be normalised or when
// the change comes from an unpaired SC line.
type ScheduleChange struct {
	Date                  string `json:"date"`
	Origin                string `json:"origin"`
	Destination           string `json:"destination"`
	OldDeparture          string `json:"old_departure"`
	OldArrival            string `json:"old_arrival"`
	NewDeparture          string `json:"new_departure,omitempty"`
	NewArrival            string `json:"new_arrival,omitempty"`
	DepartureDeltaMinutes *int   `json:"departure_delta_minutes"`
	ArrivalDeltaMinutes   *int   `json:"arrival_delta_minutes"`
	MaxDeltaMinutes       *int   `json:"max_delta_minutes"`
	DerivationMethod      string `json:"derivation_method"`
}

// Result is the full outcome of parsing one reservation dump. It contains
// only plain values so callers can persist or render it as JSON directly.
type Result struct {
	GDSDialect            Dialect         `json:"gds_dialect"`
	RecordLocator         string          `json:"record_locator,omitempty"`
	TicketNumber          string          `json:"ticket_number,omitempty"`
	PlatingCode           string          `json:"plating_code,omitempty"`
	StatusCodes           []string        `json:"status_codes"`
	EndorsementSignatures []string        `json:"endorsement_signatures"`
	IssueDateRaw          string          `json:"issue_date_raw,omitempty"`
	IssueDateISO          string          `json:"issue_date_iso,omitempty"`
	DaysSinceIssue        *int            `json:"days_since_issue,omitempty"`
	DaysUntilExpiration   *int            `json:"days_until_expiration,omitempty"`
	ScheduleChange        *ScheduleChange `json:"schedule_change,omitempty"`
	LayoverMinutes        *int            `json:"layover_minutes,omitempty"`
	LayoverDisplay        string          `json:"layover_display,omitempty"`
	Segments              []Segment       `json:"segments"`
	AirlineSignedOff      bool            `json:"airline_signed_off"`
	IssueTokens           []string        `json:"issue_tokens"`
	PrimaryIssueLabel     string          `json:"primary_issue_label,omitempty"`
	ReasonCodes           []string        `json:"reason_codes"`
	Eligibility3Hour      bool            `json:"eligibility_3_hour"`
}

// ThreeHourThresholdMinutes is the schedule-change magnitude at which a
// ticket becomes eligible for involuntary refund.
const ThreeHourThresholdMinutes = 180
