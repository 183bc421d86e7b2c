package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocation(t *testing.T) {
	loc, fallback := ResolveLocation("")
	assert.Equal(t, time.UTC, loc)
	assert.True(t, fallback)

	loc, fallback = ResolveLocation("Not/AZone")
	assert.Equal(t, time.UTC, loc)
	assert.True(t, fallback)

	loc, fallback = ResolveLocation("America/New_York")
	assert.Equal(t, "America/New_York", loc.String())
	assert.False(t, fallback)
}

func TestParseDateAndClock(t *testing.T) {
	loc, _ := ResolveLocation("America/New_York")

	tests := []struct {
		name    string
		date    string
		clock   string
		want    time.Time
		wantErr bool
	}{
		{name: "24h clock", date: "2026-01-16", clock: "14:00", want: time.Date(2026, 1, 16, 14, 0, 0, 0, loc)},
		{name: "with seconds", date: "2026-01-16", clock: "09:30:00", want: time.Date(2026, 1, 16, 9, 30, 0, 0, loc)},
		{name: "12h clock", date: "2026-01-16", clock: "2:15 pm", want: time.Date(2026, 1, 16, 14, 15, 0, 0, loc)},
		{name: "hour only pm", date: "2026-01-16", clock: "3pm", want: time.Date(2026, 1, 16, 15, 0, 0, 0, loc)},
		{name: "missing date", date: "", clock: "14:00", wantErr: true},
		{name: "missing clock", date: "2026-01-16", clock: "", wantErr: true},
		{name: "bad date", date: "Friday", clock: "14:00", wantErr: true},
		{name: "bad clock", date: "2026-01-16", clock: "afternoon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateAndClock(tt.date, tt.clock, loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("2026-01-16T14:00:00+02:00", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, got.UTC().Hour())

	got, err = ParseDateTime("2026-01-16 14:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Hour())

	_, err = ParseDateTime("", time.UTC)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 1, 16, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-16", FormatDate(ts))
	assert.Equal(t, "09:05", FormatClock(ts))
}

func TestParseDateAndSameDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d, err := ParseDate("2026-01-16", ny)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Hour())

	_, err = ParseDate("16/01/2026", ny)
	assert.Error(t, err)

	late := time.Date(2026, 1, 17, 3, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(d, late, ny))
	assert.False(t, SameDay(d, late, time.UTC))
}
