package timetable

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the ISO calendar-date format used for persisted
	// assignment dates.
	DateLayout = "2006-01-02"

	// WeeklyOccurrences is the number of dated records generated from one
	// assignment request.
	WeeklyOccurrences = 4

	// recurrenceStepDays is the spacing between generated occurrences.
	// The daily-load guard relies on occurrences of one batch never
	// landing on the same calendar day; see the regression test before
	// changing this.
	recurrenceStepDays = 7
)

// Occurrence is one expanded (date, weekday) pair of a weekly recurrence.
type Occurrence struct {
	Date string
	Day  string
}

// ParseDate validates an ISO calendar date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// ExpandWeekly turns a start date into WeeklyOccurrences dates spaced a
// week apart, in chronological order, each tagged with its English long
// weekday name. Month and year boundaries roll over via calendar
// arithmetic.
func ExpandWeekly(startDate string) ([]Occurrence, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}

	occurrences := make([]Occurrence, 0, WeeklyOccurrences)
	for i := 0; i < WeeklyOccurrences; i++ {
		d := start.AddDate(0, 0, i*recurrenceStepDays)
		occurrences = append(occurrences, Occurrence{
			Date: d.Format(DateLayout),
			Day:  d.Weekday().String(),
		})
	}
	return occurrences, nil
}

// WeekdayName returns the English long weekday name for an ISO date.
func WeekdayName(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.Weekday().String(), nil
}
