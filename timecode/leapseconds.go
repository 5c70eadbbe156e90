package timecode

import "time"

// leapSecond records a TAI-UTC offset that took effect at the given UTC
// instant, per the IERS leap second bulletins.
type leapSecond struct {
	effective time.Time
	taiMinusUTC time.Duration
}

// leapSeconds is the published history of TAI-UTC offsets since the start
// of the leap second era (1972-01-01). Table current as of the last
// published leap second (2016-12-31 23:59:60 UTC, 37s).
var leapSeconds = []leapSecond{
	{time.Date(1972, time.January, 1, 0, 0, 0, 0, time.UTC), 10 * time.Second},
	{time.Date(1972, time.July, 1, 0, 0, 0, 0, time.UTC), 11 * time.Second},
	{time.Date(1973, time.January, 1, 0, 0, 0, 0, time.UTC), 12 * time.Second},
	{time.Date(1974, time.January, 1, 0, 0, 0, 0, time.UTC), 13 * time.Second},
	{time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC), 14 * time.Second},
	{time.Date(1976, time.January, 1, 0, 0, 0, 0, time.UTC), 15 * time.Second},
	{time.Date(1977, time.January, 1, 0, 0, 0, 0, time.UTC), 16 * time.Second},
	{time.Date(1978, time.January, 1, 0, 0, 0, 0, time.UTC), 17 * time.Second},
	{time.Date(1979, time.January, 1, 0, 0, 0, 0, time.UTC), 18 * time.Second},
	{time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), 19 * time.Second},
	{time.Date(1981, time.July, 1, 0, 0, 0, 0, time.UTC), 20 * time.Second},
	{time.Date(1982, time.July, 1, 0, 0, 0, 0, time.UTC), 21 * time.Second},
	{time.Date(1983, time.July, 1, 0, 0, 0, 0, time.UTC), 22 * time.Second},
	{time.Date(1985, time.July, 1, 0, 0, 0, 0, time.UTC), 23 * time.Second},
	{time.Date(1988, time.January, 1, 0, 0, 0, 0, time.UTC), 24 * time.Second},
	{time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), 25 * time.Second},
	{time.Date(1991, time.January, 1, 0, 0, 0, 0, time.UTC), 26 * time.Second},
	{time.Date(1992, time.July, 1, 0, 0, 0, 0, time.UTC), 27 * time.Second},
	{time.Date(1993, time.July, 1, 0, 0, 0, 0, time.UTC), 28 * time.Second},
	{time.Date(1994, time.July, 1, 0, 0, 0, 0, time.UTC), 29 * time.Second},
	{time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC), 30 * time.Second},
	{time.Date(1997, time.July, 1, 0, 0, 0, 0, time.UTC), 31 * time.Second},
	{time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC), 32 * time.Second},
	{time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC), 33 * time.Second},
	{time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC), 34 * time.Second},
	{time.Date(2012, time.July, 1, 0, 0, 0, 0, time.UTC), 35 * time.Second},
	{time.Date(2015, time.July, 1, 0, 0, 0, 0, time.UTC), 36 * time.Second},
	{time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), 37 * time.Second},
}

// leapSecondsAt returns the TAI-UTC offset in effect at the given
// (approximately-TAI) instant, i.e. the duration to subtract from TAI to
// get UTC. Instants before the leap second era return zero.
func leapSecondsAt(t time.Time) time.Duration {
	var offset time.Duration
	for _, ls := range leapSeconds {
		if t.Before(ls.effective) {
			break
		}
		offset = ls.taiMinusUTC
	}
	return offset
}
