// Package timetable holds the fixed scheduling catalogs and the pure
// calendar helpers the assignment engine is built on. Everything here is
// process-wide immutable configuration loaded at compile time.
package timetable

import "fmt"

// Period is one bookable class window within a school day.
type Period struct {
	Start string
	End   string
}

// Periods is the ordered catalog of bookable class windows. The gaps
// between entries (morning break, lunch) are not bookable.
var Periods = []Period{
	{Start: "09:20", End: "10:30"},
	{Start: "10:30", End: "11:40"},
	{Start: "11:50", End: "13:00"},
	{Start: "13:50", End: "14:40"},
	{Start: "14:40", End: "15:30"},
	{Start: "15:30", End: "16:20"},
}

// groupRooms maps each student group to its fixed room.
var groupRooms = map[int]string{
	1: "3-002",
	2: "3-003",
	3: "3-004",
	4: "3-007",
	5: "3-008",
	6: "3-102",
	7: "3-103",
	8: "3-104",
}

// ValidSlot reports whether the start/end pair exactly matches a catalog
// period. Both fields must match; overlapping a period is not enough.
func ValidSlot(start, end string) bool {
	for _, p := range Periods {
		if p.Start == start && p.End == end {
			return true
		}
	}
	return false
}

// RoomFor resolves the fixed room for a group number.
func RoomFor(groupNo int) (string, bool) {
	room, ok := groupRooms[groupNo]
	return room, ok
}

// MinuteOfDay converts a wall-clock "HH:MM" string into minutes since
// midnight. Callers are expected to pass catalog-validated values; a
// malformed string yields an error rather than a silent zero.
func MinuteOfDay(clock string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", clock, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", clock)
	}
	return h*60 + m, nil
}

// Overlaps applies the strict half-open interval test on minute-of-day
// values. A window ending exactly when another starts does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
