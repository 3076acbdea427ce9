package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ist(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, IST)
}

func TestIsTradingDay(t *testing.T) {
	require.True(t, IsTradingDay(ist(2026, time.August, 26, 10, 0)))   // Wednesday
	require.False(t, IsTradingDay(ist(2026, time.August, 29, 10, 0)))  // Saturday
	require.False(t, IsTradingDay(ist(2026, time.August, 30, 10, 0)))  // Sunday
	require.False(t, IsTradingDay(ist(2026, time.October, 2, 10, 0)))  // Gandhi Jayanti
	require.True(t, IsTradingDay(ist(2026, time.October, 5, 10, 0)))   // Monday after
}

func TestIsMarketOpen(t *testing.T) {
	require.False(t, IsMarketOpen(ist(2026, time.August, 26, 9, 14)))
	require.True(t, IsMarketOpen(ist(2026, time.August, 26, 9, 15)))
	require.True(t, IsMarketOpen(ist(2026, time.August, 26, 15, 29)))
	require.False(t, IsMarketOpen(ist(2026, time.August, 26, 15, 30)))
	require.False(t, IsMarketOpen(ist(2026, time.August, 29, 10, 0)))
}

func TestNextClose(t *testing.T) {
	// mid-session resolves to the same day's close
	require.Equal(t, ist(2026, time.August, 26, 15, 30), NextClose(ist(2026, time.August, 26, 10, 0)))
	// after the close it rolls to the next trading day
	require.Equal(t, ist(2026, time.August, 27, 15, 30), NextClose(ist(2026, time.August, 26, 16, 0)))
	// Friday holiday plus the weekend all roll to Monday
	require.Equal(t, ist(2026, time.October, 5, 15, 30), NextClose(ist(2026, time.October, 2, 10, 0)))
}

func TestCloseFor(t *testing.T) {
	// a position opened mid-session squares off the same day
	require.Equal(t, ist(2026, time.August, 26, 15, 30), CloseFor(ist(2026, time.August, 26, 11, 0)))
	// opened on a Saturday it squares off at Monday's close
	require.Equal(t, ist(2026, time.August, 31, 15, 30), CloseFor(ist(2026, time.August, 29, 11, 0)))
	// opened after the close it squares off the next trading day, never in
	// the past
	afterHours := ist(2026, time.August, 26, 16, 0)
	deadline := CloseFor(afterHours)
	require.True(t, deadline.After(afterHours))
	require.Equal(t, ist(2026, time.August, 27, 15, 30), deadline)
}

func TestIsHolidayConvertsZone(t *testing.T) {
	// 2026-10-01 22:00 UTC is already 2026-10-02 in IST
	utc := time.Date(2026, time.October, 1, 22, 0, 0, 0, time.UTC)
	require.True(t, IsHoliday(utc))
}
