package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/normalize"
)

func TestFromEpoch(t *testing.T) {
	require.Nil(t, normalize.FromEpoch(0))
	require.Nil(t, normalize.FromEpoch(-1))

	got := normalize.FromEpoch(1700000000)
	require.NotNil(t, got)
	require.Equal(t, "2023-11-15T07:13:20+09:00", *got)
}

func TestFromCivil16(t *testing.T) {
	got := normalize.FromCivil16("2025-01-24 16:39")
	require.NotNil(t, got)
	require.Equal(t, "2025-01-24T16:39:00+09:00", *got, "wall-clock time must survive with the reference offset")

	require.Nil(t, normalize.FromCivil16(""))
	require.Nil(t, normalize.FromCivil16("2025-01-24 16:39:00"), "19-char form is not the export shape")
	require.Nil(t, normalize.FromCivil16("2025-99-99 16:39"))
}

func TestFromISO(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"zone-less is read as KST", "2024-12-27T17:02:33", "2024-12-27T17:02:33+09:00"},
		{"utc converts", "2024-12-27T08:02:33Z", "2024-12-27T17:02:33+09:00"},
		{"explicit offset keeps instant", "2024-12-27T17:02:33+09:00", "2024-12-27T17:02:33+09:00"},
		{"space separator", "2024-12-27 17:02:33", "2024-12-27T17:02:33+09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize.FromISO(tt.input)
			require.NotNil(t, got)
			require.Equal(t, tt.want, *got)
		})
	}

	require.Nil(t, normalize.FromISO(""))
	require.Nil(t, normalize.FromISO("yesterday"))
}

func TestDayRange(t *testing.T) {
	from, to, err := normalize.DayRange("2025-01-24")
	require.NoError(t, err)

	midnight := time.Date(2025, 1, 24, 0, 0, 0, 0, normalize.Seoul)
	require.Equal(t, midnight.Unix()-60, from)
	require.Equal(t, midnight.AddDate(0, 0, 1).Unix()-1+60, to)

	_, _, err = normalize.DayRange("24/01/2025")
	require.Error(t, err)
}

func TestDailyWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 5, 30, 0, 0, normalize.Seoul)
	start, end := normalize.DailyWindow(now)

	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, normalize.Seoul), end)
	require.Equal(t, time.Date(2025, 3, 8, 23, 0, 0, 0, normalize.Seoul), start)

	// The same instant expressed in UTC must yield the same window.
	startUTC, endUTC := normalize.DailyWindow(now.UTC())
	require.True(t, start.Equal(startUTC))
	require.True(t, end.Equal(endUTC))
}
