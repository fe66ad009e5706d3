package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalLabel(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{15, "15m"},
		{60, "1h"},
		{90, "1h 30m"},
		{135, "2h 15m"},
		{240, "4h"},
		{100, "100m"},
		{0, "0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IntervalLabel(tt.minutes))
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	d, err = ParseClock("14:05:30")
	require.NoError(t, err)
	assert.Equal(t, 14*time.Hour+5*time.Minute+30*time.Second, d)

	for _, bad := range []string{"", "9", "aa:bb", "25:00", "10:61", "10:00:00:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSessionMinutes(t *testing.T) {
	minutes, err := SessionMinutes("09:00:00", "10:30:00")
	require.NoError(t, err)
	assert.Equal(t, 90, minutes)

	// overnight wrap
	minutes, err = SessionMinutes("23:30", "00:30")
	require.NoError(t, err)
	assert.Equal(t, 60, minutes)

	_, err = SessionMinutes("nine", "10:00")
	assert.Error(t, err)
}
