package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"08:00", 480, true},
		{"17:30", 1050, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"18", 0, false},
		{"six pm", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if !tc.ok {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:00", FormatClock(480))
	assert.Equal(t, "17:30", FormatClock(1050))
	assert.Equal(t, "00:05", FormatClock(5))
}

func TestSlotEndTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	end, err := SlotEndTime("2024-10-25", 19*60, loc)
	require.NoError(t, err)

	assert.Equal(t, 19, end.Hour())
	assert.Equal(t, "2024-10-25", end.Format(DateLayout))
	assert.Equal(t, loc, end.Location())
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("25/10/2024", time.UTC)
	assert.Error(t, err)

	_, err = ParseDate("2024-13-40", time.UTC)
	assert.Error(t, err)
}
