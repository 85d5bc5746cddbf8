package merge

import "time"

// combine produces the naive absolute UTC datetime for circulation date d
// combined with time-of-day tod. Datetimes are stored naive-UTC (no
// timezone attached) so they round-trip cleanly through storage layers
// that don't carry tz info.
func combine(d time.Time, tod time.Duration) time.Time {
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(tod)
}
