package continuous

import "testing"

func TestInTimeRange(t *testing.T) {
	// begin == end == 0 means "any time".
	if !InTimeRange(3, 17, 0, 0, 0, 0) {
		t.Error("zero begin/end should match any time")
	}

	// Ordinary same-day window.
	if !InTimeRange(12, 0, 9, 0, 17, 0) {
		t.Error("12:00 should be within 09:00..17:00")
	}
	if InTimeRange(20, 0, 9, 0, 17, 0) {
		t.Error("20:00 should be outside 09:00..17:00")
	}

	// Window wraps past midnight.
	if !InTimeRange(23, 30, 22, 0, 6, 0) {
		t.Error("23:30 should be within wrapping 22:00..06:00")
	}
	if !InTimeRange(2, 0, 22, 0, 6, 0) {
		t.Error("02:00 should be within wrapping 22:00..06:00")
	}
	if InTimeRange(12, 0, 22, 0, 6, 0) {
		t.Error("12:00 should be outside wrapping 22:00..06:00")
	}
}
