// Package civiltime converts wall-clock dates and times of the charger's
// location into absolute instants and back.
//
// The charger runs on Bogotá civil time, a fixed UTC-5 offset with no
// daylight saving, so every conversion here uses a fixed zone and never the
// process local zone.
package civiltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ZoneName = "America/Bogota"

	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04"
	ISOLayout   = "2006-01-02T15:04:05.000-07:00"

	offsetSeconds = -5 * 60 * 60
)

// Location is the fixed civil zone every instant is anchored to.
var Location = time.FixedZone(ZoneName, offsetSeconds)

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share any instant. Touching intervals
// (i.End == o.Start) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// ParseDate returns the instant of civil midnight for a YYYY-MM-DD date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t, nil
}

// DateTime returns the instant at which the civil clock reads hour:minute on
// the given date.
func DateTime(date string, hour, minute int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute %d", minute)
	}

	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, Location), nil
}

// ParseClock parses a 24-hour "HH:MM" (or "H:MM") clock reading.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", clock)
	}
	if !allDigits(parts[0]) || !allDigits(parts[1]) {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", clock)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time %q: hour out of range", clock)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: minute out of range", clock)
	}

	return hour, minute, nil
}

// allDigits rejects the signs strconv.Atoi would otherwise accept.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseSlot resolves an "HH:MM-HH:MM" slot on the civil date of midnight.
// When the end clock is not after the start clock the slot crosses midnight
// and ends on the following day.
func ParseSlot(midnight time.Time, slot string) (Interval, error) {
	startClock, endClock, ok := strings.Cut(slot, "-")
	if !ok {
		return Interval{}, fmt.Errorf("invalid time slot %q: expected HH:MM-HH:MM", slot)
	}
	return SlotInterval(CivilDate(midnight), startClock, endClock)
}

// SlotInterval resolves a start and end clock on a civil date, applying the
// same midnight-crossing rule as ParseSlot.
func SlotInterval(date, startClock, endClock string) (Interval, error) {
	sh, sm, err := ParseClock(startClock)
	if err != nil {
		return Interval{}, err
	}
	eh, em, err := ParseClock(endClock)
	if err != nil {
		return Interval{}, err
	}

	start, err := DateTime(date, sh, sm)
	if err != nil {
		return Interval{}, err
	}
	end, err := DateTime(date, eh, em)
	if err != nil {
		return Interval{}, err
	}

	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	return Interval{Start: start, End: end}, nil
}

// FormatSlot renders the civil "HH:MM-HH:MM" label of an interval.
func FormatSlot(i Interval) string {
	return i.Start.In(Location).Format(ClockLayout) + "-" + i.End.In(Location).Format(ClockLayout)
}

// FormatISO renders t as an ISO-8601 string carrying the civil offset, e.g.
// 2026-01-09T20:00:00.000-05:00.
func FormatISO(t time.Time) string {
	return t.In(Location).Format(ISOLayout)
}

// CivilDate returns the civil YYYY-MM-DD date on which t falls.
func CivilDate(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// CivilMonth returns the civil YYYY-MM month on which t falls.
func CivilMonth(t time.Time) string {
	return t.In(Location).Format(MonthLayout)
}

// StartOfDay returns civil midnight of the day t falls on.
func StartOfDay(t time.Time) time.Time {
	c := t.In(Location)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, Location)
}

// DayRange returns the half-open span covering one civil day.
func DayRange(date string) (from, to time.Time, err error) {
	from, err = ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 0, 1), nil
}

// MonthRange returns the half-open span covering one civil month (YYYY-MM).
func MonthRange(month string) (from, to time.Time, err error) {
	from, err = time.ParseInLocation(MonthLayout, strings.TrimSpace(month), Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	return from, from.AddDate(0, 1, 0), nil
}
