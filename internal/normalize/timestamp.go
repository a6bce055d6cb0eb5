package normalize

import (
	"strings"
	"time"
)

// Seoul is the reference zone for every stored timestamp. KST has no DST, so
// the fixed-zone fallback is exact even without tzdata.
var Seoul = seoulLocation()

func seoulLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

const isoLayout = "2006-01-02T15:04:05-07:00"

// FromEpoch renders a unix-seconds timestamp as KST ISO-8601. Zero and
// negative values mean the platform never recorded the event.
func FromEpoch(sec int64) *string {
	if sec <= 0 {
		return nil
	}
	s := time.Unix(sec, 0).In(Seoul).Format(isoLayout)
	return &s
}

// FromCivil16 reads the 16-char export form "YYYY-MM-DD HH:MM" as KST
// wall-clock time. Any other length or shape is treated as absent.
func FromCivil16(s string) *string {
	if len(s) != 16 {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, Seoul)
	if err != nil {
		return nil
	}
	out := t.Format(isoLayout)
	return &out
}

// ParseISO parses an ISO-8601 timestamp. Offset-qualified strings keep their
// instant; zone-less strings are read as KST wall-clock time, which is how
// the WooCommerce store reports site-local dates.
func ParseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, Seoul); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromISO renders an ISO-8601 timestamp in KST, nil when absent or
// unparseable.
func FromISO(s string) *string {
	t, ok := ParseISO(s)
	if !ok {
		return nil
	}
	out := t.In(Seoul).Format(isoLayout)
	return &out
}

// DayRange returns the epoch-second bounds of one KST calendar day widened by
// 60s on both sides, so orders stamped at the midnight boundary are not lost
// to clock skew between the platform and the collector.
func DayRange(date string) (int64, int64, error) {
	day, err := time.ParseInLocation("2006-01-02", date, Seoul)
	if err != nil {
		return 0, 0, err
	}
	start := day.Unix() - 60
	end := day.AddDate(0, 0, 1).Unix() - 1 + 60
	return start, end, nil
}

// DailyWindow returns the rolling daily-sync window ending at today's KST
// midnight and opening 25 hours earlier, so each run overlaps the previous
// one by an hour.
func DailyWindow(now time.Time) (time.Time, time.Time) {
	kst := now.In(Seoul)
	end := time.Date(kst.Year(), kst.Month(), kst.Day(), 0, 0, 0, 0, Seoul)
	return end.Add(-25 * time.Hour), end
}
