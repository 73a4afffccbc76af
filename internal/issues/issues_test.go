package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantTokens  []string
		wantPrimary string
	}{
		{
			name:        "schedule change",
			text:        "SKED CHG ON SEG 2",
			wantTokens:  []string{"schedule_change"},
			wantPrimary: "schedule_change",
		},
		{
			name:        "primary follows category order not text order",
			text:        "WX DELAY THEN FLIGHT CANCELLED",
			wantTokens:  []string{"cancellation", "delay", "weather"},
			wantPrimary: "cancellation",
		},
		{
			name:        "lower case input",
			text:        "missed connection due to atc ground stop",
			wantTokens:  []string{"atc", "misconnect"},
			wantPrimary: "misconnect",
		},
		{
			name:        "involuntary reroute",
			text:        "INVOL REROUTE",
			wantTokens:  []string{"involuntary"},
			wantPrimary: "involuntary",
		},
		{
			name:        "nothing",
			text:        "PASSENGER REQUESTED SEAT 12A",
			wantTokens:  []string{},
			wantPrimary: "",
		},
		{
			name:        "empty",
			text:        "",
			wantTokens:  []string{},
			wantPrimary: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.wantTokens, got.Tokens)
			assert.Equal(t, tt.wantPrimary, got.Primary)
		})
	}
}

func TestCategoriesOrder(t *testing.T) {
	want := []string{
		"schedule_change", "cancellation", "delay", "denied_boarding", "misconnect",
		"weather", "maintenance", "atc", "security", "involuntary",
	}
	var got []string
	for _, c := range Categories {
		got = append(got, c.Label)
	}
	assert.Equal(t, want, got)
}

func TestReasonCodes(t *testing.T) {
	assert.Equal(t, []string{"RF-ABC", "RF-SKCHG"}, ReasonCodes("rf-skchg RF-ABC RF-SKCHG"))
	assert.Equal(t, []string{}, ReasonCodes("RF-AB"))
	assert.Equal(t, []string{}, ReasonCodes(""))
}
