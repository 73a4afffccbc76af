package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnr_parser/internal/pnr"
)

func TestParserExtract(t *testing.T) {
	text := " 1 AA 100Y 12JAN Q LHRJFK TKOK1  0800A  1115A\r\n" +
		" 2 BA 117Y 10JAN 3 JFKLHR HX1   0800  2000\r\n" +
		" 3  ba 117 y 10jan jfk lhr hk1  1400  0200+1\r\n" +
		"TOTAL USD 812.40\r\n"

	p := &Parser{}
	require.True(t, p.QuickCheck(text))

	ext := p.Extract(text)
	require.NotNil(t, ext)
	require.Len(t, ext.Segments, 3)
	assert.Nil(t, ext.Declaration)

	// Text order, whichever clock grammar matched.
	assert.Equal(t, pnr.Segment{
		Carrier: "AA", FlightNumber: "100", Date: "12JAN", Origin: "LHR", Destination: "JFK",
		StatusCode: "TKOK1", DepartureToken: "0800A", ArrivalToken: "1115A",
		Ordinal: 0, Grammar: Format12h,
	}, ext.Segments[0])
	assert.Equal(t, pnr.Segment{
		Carrier: "BA", FlightNumber: "117", Date: "10JAN", Origin: "JFK", Destination: "LHR",
		StatusCode: "HX1", DepartureToken: "0800", ArrivalToken: "2000",
		Ordinal: 1, Grammar: Format24h,
	}, ext.Segments[1])
	assert.Equal(t, pnr.Segment{
		Carrier: "BA", FlightNumber: "117", Date: "10JAN", Origin: "JFK", Destination: "LHR",
		StatusCode: "HK1", DepartureToken: "1400", ArrivalToken: "0200+1",
		Ordinal: 2, Grammar: Format24h,
	}, ext.Segments[2])
}

func TestParserMixedClocksKeepTextOrder(t *testing.T) {
	text := " 1 AA 100Y 10JAN JFKORD HK1 0800A 1000A\n" +
		" 2 AA 200Y 10JAN ORDLAX HK1 1130 1400\n" +
		" 3 AA 300Y 11JAN LAXSFO HK1 0900A 1030A\n"

	ext := (&Parser{}).Extract(text)
	require.NotNil(t, ext)
	require.Len(t, ext.Segments, 3)

	var routes []string
	for i, seg := range ext.Segments {
		assert.Equal(t, i, seg.Ordinal)
		routes = append(routes, seg.Origin+seg.Destination)
	}
	assert.Equal(t, []string{"JFKORD", "ORDLAX", "LAXSFO"}, routes)
	assert.Equal(t, Format12h, ext.Segments[0].Grammar)
	assert.Equal(t, Format24h, ext.Segments[1].Grammar)
}

func TestParserRejects(t *testing.T) {
	p := &Parser{}

	tests := []struct {
		name string
		text string
	}{
		{"no row number", "BA 117Y 10JAN JFKLHR HK1 0800 2000"},
		{"mixed clocks", " 1 BA 117Y 10JAN JFKLHR HK1 0800 2000P"},
		{"long status on 24h", " 1 BA 117Y 10JAN JFKLHR TKOK1 0800 2000"},
		{"bad month", " 1 BA 117Y 10JAX JFKLHR HK1 0800 2000"},
		{"free text", "THANK YOU FOR FLYING WITH US IN JANUARY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, p.Extract(tt.text))
		})
	}
}

func TestParserQuickCheck(t *testing.T) {
	p := &Parser{}
	assert.True(t, p.QuickCheck("10jan"))
	assert.False(t, p.QuickCheck("HK1 0800 2000"))
	assert.False(t, p.QuickCheck(""))
}

func TestParserTrace(t *testing.T) {
	p := &Parser{}

	trace := p.ExtractWithTrace(" 1 BA 117Y 10JAN JFKLHR HK1 0800 2000")
	require.NotNil(t, trace.QuickCheck)
	assert.True(t, trace.QuickCheck.Passed)
	assert.True(t, trace.Matched)
	require.Len(t, trace.Formats, 2)
	assert.Equal(t, Format24h, trace.Formats[0].Name)
	assert.Equal(t, 1, trace.Formats[0].Count)
	assert.False(t, trace.Formats[1].Matched)

	trace = p.ExtractWithTrace("NOTHING")
	assert.False(t, trace.QuickCheck.Passed)
	assert.NotEmpty(t, trace.QuickCheck.Reason)
	assert.False(t, trace.Matched)
}
