package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRecordLocator(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled", "RECORD LOCATOR: abc123", "ABC123"},
		{"rloc", "RLOC XYZ789\nOTHER", "XYZ789"},
		{"pnr dash", "PNR-QWE456", "QWE456"},
		{"amadeus rp line", "RP/NYC1S2195/NYC1S2195            AA/SU  10JAN24/1200Z   XYZ789\r\n1.DOE/JOHN", "XYZ789"},
		{"too short", "PNR AB12", ""},
		{"none", "NO LOCATOR HERE", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRecordLocator(tt.text))
		})
	}
}

func TestExtractTicketNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled with dash", "TKT: 016-1234567890", "0161234567890"},
		{"eticket", "E-TKT NBR 0011234567890", "0011234567890"},
		{"amadeus fa", "FA PAX 125-9876543210/ETBA/USD812.40", "1259876543210"},
		{"label wins over bare", "REF 0019999999999\nTICKET 0161234567890", "0161234567890"},
		{"bare", "0161234567890", "0161234567890"},
		{"twelve digits", "TKT 016123456789", ""},
		{"none", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTicketNumber(tt.text))
		})
	}
}

func TestPlatingCode(t *testing.T) {
	assert.Equal(t, "016", PlatingCode("0161234567890"))
	assert.Equal(t, "", PlatingCode(""))
	assert.Equal(t, "", PlatingCode("01"))
}

func TestExtractIssueDate(t *testing.T) {
	assert.Equal(t, "15MAR24", ExtractIssueDate("ISSUED: 15MAR24"))
	assert.Equal(t, "2FEB2024", ExtractIssueDate("TST DT 2FEB2024"))
	assert.Equal(t, "15MAR24", ExtractIssueDate("DT 01JAN24\nissued 15mar24"))
	assert.Equal(t, "", ExtractIssueDate("NO DATE"))
}

func TestParseTicketDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   time.Time
		wantOK bool
	}{
		{"15MAR24", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"5MAR24", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05MAR2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"31FEB24", time.Time{}, false},
		{"15XYZ24", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTicketDate(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestExtractStatusTokens(t *testing.T) {
	assert.Equal(t, []string{"HK1", "SC2"}, ExtractStatusTokens("seg hk1 TK ... SC2 UN"))
	assert.Empty(t, ExtractStatusTokens(""))
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"A", "B C"}, UniqueSorted([]string{" b   c ", "a", "B C", ""}))

	empty := UniqueSorted(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
