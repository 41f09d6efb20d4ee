package trial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKeyUsesServiceTimezone(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 23:30 UTC on the 30th is already the 31st in Shanghai (UTC+8).
	instant := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-30", DayKey(instant, time.UTC))
	assert.Equal(t, "2026-08-31", DayKey(instant, shanghai))
}

func TestMinuteOfDay(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want int
	}{
		{name: "midnight", t: time.Date(2026, 8, 31, 0, 0, 59, 0, time.UTC), loc: time.UTC, want: 0},
		{name: "evening", t: time.Date(2026, 8, 31, 19, 15, 0, 0, time.UTC), loc: time.UTC, want: 19*60 + 15},
		{name: "end of day", t: time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC), loc: time.UTC, want: 1439},
		{name: "timezone shift", t: time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC), loc: shanghai, want: 7 * 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinuteOfDay(tt.t, tt.loc))
		})
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
