package markethours

import "time"

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE cash/derivatives session in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// IsTradingDay returns true if t is a weekday and not an exchange holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	wd := ist.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !IsHoliday(ist)
}

// IsMarketOpen returns true if t falls within the trading session.
func IsMarketOpen(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	ist := t.In(IST)
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

func closeOn(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// NextClose returns the first market-close instant strictly after t.
func NextClose(t time.Time) time.Time {
	ist := t.In(IST)
	if IsTradingDay(ist) && ist.Before(closeOn(ist)) {
		return closeOn(ist)
	}
	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ {
		if IsTradingDay(d) {
			return closeOn(d)
		}
		d = d.AddDate(0, 0, 1)
	}
	// Fallback: next calendar day. Only reachable if the holiday table ever
	// covers more than ten consecutive days.
	return closeOn(ist.AddDate(0, 0, 1))
}

// CloseFor returns the close an intraday position opened at t must be
// squared off by: t's own close while the session is still ahead, otherwise
// the next market close. A deadline in the past would have the recovery
// sweep liquidate a fresh after-hours position immediately.
func CloseFor(t time.Time) time.Time {
	return NextClose(t)
}
