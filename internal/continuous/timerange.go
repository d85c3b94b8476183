package continuous

import "time"

// InTimeRange reports whether hour:minute falls within [beginH:beginM,
// endH:endM]. beginH==endH==0 and beginM==endM==0 means "any time" (§4.6).
// The window wraps across midnight when the end time-of-day is earlier
// than the begin time-of-day.
func InTimeRange(hour, minute, beginH, beginM, endH, endM int) bool {
	if beginH == 0 && beginM == 0 && endH == 0 && endM == 0 {
		return true
	}

	now := hour*60 + minute
	begin := beginH*60 + beginM
	end := endH*60 + endM

	if begin <= end {
		return now >= begin && now <= end
	}
	// wraps past midnight: e.g. 22:00 .. 06:00
	return now >= begin || now <= end
}

// inUUIDWindow extracts hour/minute of day from now and from entry's
// BeginTime/EndTime and evaluates InTimeRange — the wrapper that
// reconciles WatchUUIDEntry's time.Time-typed fields with InTimeRange's
// literal hour/minute signature.
func inUUIDWindow(now, begin, end time.Time) bool {
	return InTimeRange(now.Hour(), now.Minute(), begin.Hour(), begin.Minute(), end.Hour(), end.Minute())
}
