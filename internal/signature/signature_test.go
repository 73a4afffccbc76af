package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"sabre waiver", "WETR*1\n/DCAA*SKCHG1/E", []string{"/DCAA*SKCHG1/E"}},
		{"reason code", "ENDORSE RF-SKCHG", []string{"RF-SKCHG"}},
		{"labelled waiver", "waiver: ab1234", []string{"WAIVER: AB1234"}},
		{"labelled waiver spacing collapsed", "WAIVER:   AB1234", []string{"WAIVER: AB1234"}},
		{"multiple forms sorted", "RF-INVOL1 /DCUA*ABCD/E", []string{"/DCUA*ABCD/E", "RF-INVOL1"}},
		{"none", "NOTHING TO SEE", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtractAmadeusNonend(t *testing.T) {
	got := Extract("FE PAX NONEND/WAIVER CODE SKCHG123")
	assert.Contains(t, got, "NONEND/WAIVER CODE SKCHG123")
}

func TestExtractSetStability(t *testing.T) {
	once := Extract("RF-SKCHG /DCAA*ABCD/E")
	twice := Extract("RF-SKCHG /DCAA*ABCD/E\r\nRF-SKCHG /DCAA*ABCD/E")
	assert.Equal(t, once, twice)
	assert.Len(t, once, 2)
}

func TestWaiverPresent(t *testing.T) {
	assert.True(t, WaiverPresent("/DCAA*ABCD/E"))
	assert.True(t, WaiverPresent("rf-abcd"))
	assert.True(t, WaiverPresent("WAIVER ABC"))
	assert.True(t, WaiverPresent("ENDORSEMENT: RF-ABC"))
	assert.False(t, WaiverPresent("WAIVER"))
	assert.False(t, WaiverPresent(""))
}

func TestKeywordPresent(t *testing.T) {
	assert.True(t, KeywordPresent("supervisor approval given"))
	assert.True(t, KeywordPresent("ENDORSEMENT"))
	assert.False(t, KeywordPresent("WAIVERS"))
	assert.False(t, KeywordPresent(""))
}
