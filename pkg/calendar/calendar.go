package calendar

import (
	"strings"
	"time"
)

// WeekdayLabels are the short weekday labels used by the roster UI, Sunday first.
var WeekdayLabels = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// Day is one calendar day of the month being scheduled
type Day struct {
	Number  int          `json:"day"`
	Weekday time.Weekday `json:"weekday"`
	Week    int          `json:"week"`
}

// Calendar is the expanded shape of a month.
//
// Weeks are fixed calendar weeks aligned to Sunday: day 1 is in week 0 and a
// new week starts every time the weekday wraps back to Sunday.
type Calendar struct {
	Year         int
	Month        int
	DayCount     int
	FirstWeekday int
	Days         []Day
}

// Expand builds the ordered day sequence for a month. firstWeekday is taken
// modulo 7, so negative or oversized values are accepted. A dayCount outside
// 28..31 is not rejected; a non-positive dayCount yields no days.
func Expand(year, month, dayCount, firstWeekday int) Calendar {
	first := ((firstWeekday % 7) + 7) % 7
	cal := Calendar{
		Year:         year,
		Month:        month,
		DayCount:     dayCount,
		FirstWeekday: first,
	}
	if dayCount <= 0 {
		return cal
	}

	cal.Days = make([]Day, 0, dayCount)
	week := 0
	for n := 1; n <= dayCount; n++ {
		wd := time.Weekday((first + n - 1) % 7)
		if n > 1 && wd == time.Sunday {
			week++
		}
		cal.Days = append(cal.Days, Day{Number: n, Weekday: wd, Week: week})
	}
	return cal
}

// ForMonth expands the real calendar month using the Gregorian calendar.
func ForMonth(year, month int) Calendar {
	return Expand(year, month, DaysIn(year, month), FirstWeekday(year, month))
}

// DaysIn returns the number of days in the given month
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday index (0=Sunday) of day 1 of the month
func FirstWeekday(year, month int) int {
	return int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// Contains reports whether n is a day of this calendar
func (c Calendar) Contains(n int) bool {
	return n >= 1 && n <= len(c.Days)
}

// Day returns the day numbered n
func (c Calendar) Day(n int) (Day, bool) {
	if !c.Contains(n) {
		return Day{}, false
	}
	return c.Days[n-1], true
}

// WeekOf returns the week index of day n, or -1 when n is outside the month.
func (c Calendar) WeekOf(n int) int {
	d, ok := c.Day(n)
	if !ok {
		return -1
	}
	return d.Week
}

// Weeks groups the day numbers by week index
func (c Calendar) Weeks() [][]int {
	var weeks [][]int
	for _, d := range c.Days {
		if d.Week == len(weeks) {
			weeks = append(weeks, nil)
		}
		weeks[d.Week] = append(weeks[d.Week], d.Number)
	}
	return weeks
}

// Date returns the civil date of day n in UTC.
func (c Calendar) Date(n int) time.Time {
	return time.Date(c.Year, time.Month(c.Month), n, 0, 0, 0, 0, time.UTC)
}

// Label returns the roster label of a weekday
func Label(wd time.Weekday) string {
	return WeekdayLabels[int(wd)%7]
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday, "su": time.Sunday,
	"mon": time.Monday, "monday": time.Monday, "mo": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "tu": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "we": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "th": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "fr": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sa": time.Saturday,
}

// ParseWeekday accepts roster labels (日..土, optionally suffixed with 曜 or 曜日)
// and English names or abbreviations.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "曜日")
	s = strings.TrimSuffix(s, "曜")
	for i, l := range WeekdayLabels {
		if s == l {
			return time.Weekday(i), true
		}
	}
	wd, ok := weekdayNames[strings.ToLower(s)]
	return wd, ok
}
