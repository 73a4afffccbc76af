package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind string
		wantText string
		wantTkt  string
		wantPNR  string
	}{
		{
			name:     "envelope",
			payload:  `{"route":"agent","submission":{"text":"1 AA 100 10JAN DFWLAX HK1 0800 0930","ticket_number":"0011234567890"}}`,
			wantKind: KindEnvelope,
			wantText: "1 AA 100 10JAN DFWLAX HK1 0800 0930",
			wantTkt:  "0011234567890",
		},
		{
			name:     "flat",
			payload:  `{"text":"PNR TEXT","airline_record_locator":"ABC123"}`,
			wantKind: KindFlat,
			wantText: "PNR TEXT",
			wantPNR:  "ABC123",
		},
		{
			name:     "intake log",
			payload:  `{"service_case_id":"001-123-0101-0900AM","ticket_number":"0011234567890","airline_record_locator":"QWE456","iata_agent_number":12345678,"ocr_text":"OCR TEXT"}`,
			wantKind: KindIntakeLog,
			wantText: "OCR TEXT",
			wantTkt:  "0011234567890",
			wantPNR:  "QWE456",
		},
		{
			name:     "nested payload",
			payload:  `{"data":{"ocr_text":"NESTED"}}`,
			wantKind: KindIntakeLog,
			wantText: "NESTED",
		},
		{
			name:    "envelope without text",
			payload: `{"submission":{"text":"  "}}`,
		},
		{
			name:    "no text",
			payload: `{"ticket_number":"0011234567890"}`,
		},
		{
			name:    "not json",
			payload: `text only`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, kind := Decode([]byte(tt.payload))
			assert.Equal(t, tt.wantKind, kind)
			if tt.wantKind == "" {
				assert.Nil(t, sub)
				return
			}
			require.NotNil(t, sub)
			assert.Equal(t, tt.wantText, sub.Text)
			assert.Equal(t, tt.wantTkt, sub.TicketNumber)
			assert.Equal(t, tt.wantPNR, sub.RecordLocator)
		})
	}
}

func TestDecodeIntakeLogMetadata(t *testing.T) {
	sub, kind := Decode([]byte(`{"payload":{"ocr_text":"X","iata_agent_number":"AG1","timestamp":1718292600}}`))
	require.Equal(t, KindIntakeLog, kind)
	assert.Equal(t, "AG1", sub.AgencyID)
	assert.Equal(t, time.Unix(1718292600, 0).UTC(), sub.SubmittedAt.Time)

	sub, _ = Decode([]byte(`{"ocr_text":"X","submitted_at":"2024-06-13T15:30:00Z"}`))
	assert.Equal(t, time.Date(2024, 6, 13, 15, 30, 0, 0, time.UTC), sub.SubmittedAt.Time)

	sub, _ = Decode([]byte(`{"ocr_text":"X","iata_agent_number":12345678}`))
	assert.Equal(t, "12345678", sub.AgencyID)
}
