package pnr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FlexTime handles JSON timestamps that arrive either as RFC 3339 strings or
// as epoch seconds.
type FlexTime struct {
	time.Time
}

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	// Try as number first
	var sec int64
	if err := json.Unmarshal(data, &sec); err == nil {
		if sec > 0 {
			f.Time = time.Unix(sec, 0).UTC()
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil // Silently ignore unusable timestamps.
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		f.Time = t.UTC()
		return nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		f.Time = time.Unix(sec, 0).UTC()
	}
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(f.UTC().Format(time.RFC3339))
}

// Submission is the OCR text of an uploaded PNR screenshot together with the
// metadata the intake form collected.
type Submission struct {
	ID            string   `json:"id,omitempty"`
	CaseID        string   `json:"service_case_id,omitempty"`
	TicketNumber  string   `json:"ticket_number,omitempty"`
	RecordLocator string   `json:"airline_record_locator,omitempty"`
	AgencyID      string   `json:"agency_id,omitempty"`
	ServiceType   string   `json:"service_request_type,omitempty"`
	Source        string   `json:"source,omitempty"`
	SubmittedAt   FlexTime `json:"submitted_at"`
	Text          string   `json:"text"`
}

// Envelope is the wrapped form published by the intake layer, where the
// submission sits under a "submission" key next to routing metadata.
type Envelope struct {
	Route      string      `json:"route,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
}

var (
	ticketNumberRe  = regexp.MustCompile(`^\d{13}$`)
	recordLocatorRe = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
)

// ValidTicketNumber reports whether s is a 13 digit ticket number with no
// separators.
func ValidTicketNumber(s string) bool {
	return ticketNumberRe.MatchString(s)
}

// ValidRecordLocator reports whether s is a 6 character alphanumeric locator.
func ValidRecordLocator(s string) bool {
	return recordLocatorRe.MatchString(s)
}

// Validate checks the intake metadata. Empty optional fields are accepted.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if s.TicketNumber != "" && !ValidTicketNumber(s.TicketNumber) {
		return fmt.Errorf("ticket number must be exactly 13 digits")
	}
	if s.RecordLocator != "" && !ValidRecordLocator(s.RecordLocator) {
		return fmt.Errorf("record locator must be exactly 6 letters or digits")
	}
	return nil
}

// CaseIDFor builds a service case id of the form PLATING-AGENCY-MMDD-hhmmPM.
func CaseIDFor(ticketNumber, agencyID string, at time.Time) string {
	plating := "000"
	if len(ticketNumber) >= 3 {
		plating = ticketNumber[:3]
	}
	agency := strings.TrimSpace(agencyID)
	if agency == "" {
		agency = "NA"
	}
	return fmt.Sprintf("%s-%s-%s", plating, agency, at.Format("0102-0304PM"))
}
