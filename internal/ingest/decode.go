// Package ingest decodes submission payloads and runs the NATS parse worker.
//
// Payloads arrive in one of three shapes, tried in order:
//  1. Envelope:       {"route":"...", "submission":{...}}
//  2. Flat:           {"text":"...", "ticket_number":"...", ...}
//  3. Intake log:     {"service_case_id":"...", "ocr_text":"...", ...} where
//     the text and metadata may also sit under "payload" or "data".
package ingest

import (
	"encoding/json"
	"strconv"
	"strings"

	"pnr_parser/internal/pnr"
)

// Payload kinds reported by Decode.
const (
	KindEnvelope  = "envelope"
	KindFlat      = "flat"
	KindIntakeLog = "intake_log"
)

// Decode turns a JSON payload into a submission. It returns nil and an empty
// kind when no reservation text can be found.
func Decode(b []byte) (*pnr.Submission, string) {
	// 1) Envelope wrapper
	var env pnr.Envelope
	if err := json.Unmarshal(b, &env); err == nil && env.Submission != nil {
		if strings.TrimSpace(env.Submission.Text) != "" {
			return env.Submission, KindEnvelope
		}
	}

	// 2) Flat submission (only accept if it actually contains text)
	var sub pnr.Submission
	if err := json.Unmarshal(b, &sub); err == nil {
		if strings.TrimSpace(sub.Text) != "" {
			return &sub, KindFlat
		}
	}

	// 3) Intake log entries and other nested shapes
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, ""
	}
	if s := submissionFromNested(root); s != nil {
		return s, KindIntakeLog
	}
	return nil, ""
}

// submissionFromNested looks for the OCR text and intake metadata under the
// common paths written by the intake form.
func submissionFromNested(root map[string]any) *pnr.Submission {
	text := firstString(root, "ocr_text", "payload.ocr_text", "data.ocr_text", "ocr.text", "payload.text", "data.text")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s := &pnr.Submission{
		ID:            firstString(root, "id", "payload.id", "data.id"),
		CaseID:        firstString(root, "service_case_id", "payload.service_case_id", "data.service_case_id"),
		TicketNumber:  firstString(root, "ticket_number", "payload.ticket_number", "data.ticket_number"),
		RecordLocator: firstString(root, "airline_record_locator", "record_locator", "payload.airline_record_locator"),
		AgencyID:      firstString(root, "iata_agent_number", "agency_id", "payload.iata_agent_number"),
		ServiceType:   firstString(root, "service_request_type", "payload.service_request_type"),
		Source:        firstString(root, "source", "payload.source"),
		Text:          text,
	}
	for _, p := range []string{"submitted_at", "timestamp", "payload.timestamp"} {
		if v, ok := deepGet(root, p); ok {
			raw, _ := json.Marshal(v)
			_ = s.SubmittedAt.UnmarshalJSON(raw)
			if !s.SubmittedAt.IsZero() {
				break
			}
		}
	}
	return s
}

func firstString(root map[string]any, paths ...string) string {
	for _, p := range paths {
		if v, ok := deepGet(root, p); ok {
			switch t := v.(type) {
			case string:
				if strings.TrimSpace(t) != "" {
					return t
				}
			case float64:
				// Agency numbers are sometimes sent as JSON numbers.
				if t == float64(int64(t)) {
					return strconv.FormatInt(int64(t), 10)
				}
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

// deepGet walks a map[string]any using a dotted path: "a.b.c".
func deepGet(root map[string]any, dotted string) (any, bool) {
	parts := strings.Split(dotted, ".")
	var cur any = root
	for _, part := range parts {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}
