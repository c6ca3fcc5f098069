package scheduler

import (
	"github.com/arnavshah/shift-roster-api/pkg/calendar"
)

// Staff is one member of the roster with their eligibility and workload limits.
// WeeklyMax and ConsecutiveMax of zero or less mean no limit.
type Staff struct {
	ID             string
	Eligible       []string
	MonthlyMin     int
	MonthlyMax     int
	WeeklyMax      int
	ConsecutiveMax int
}

// CanWork reports whether the staff member may ever work the shift code
func (s Staff) CanWork(code string) bool {
	for _, c := range s.Eligible {
		if c == code {
			return true
		}
	}
	return false
}

// ShiftType is a declared shift code. Label is the human readable time range
// used in shortage reports; RestDays is the number of days after working this
// shift on which the same person may not be scheduled.
type ShiftType struct {
	Code     string
	Label    string
	RestDays int
}

// DisplayLabel returns Label, falling back to Code
func (t ShiftType) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Code
}

// Slot identifies one (day, shift code) cell of the month
type Slot struct {
	Day  int
	Code string
}

// Demand is the required headcount per slot. Absent slots need nobody.
type Demand map[Slot]int

// Required returns the headcount required for a slot
func (d Demand) Required(day int, code string) int {
	return d[Slot{Day: day, Code: code}]
}

// DaysOff maps staff id to the set of days on which they must not work
type DaysOff map[string]map[int]bool

// Add marks day as off for a staff member
func (o DaysOff) Add(staffID string, day int) {
	if o[staffID] == nil {
		o[staffID] = make(map[int]bool)
	}
	o[staffID][day] = true
}

// Off reports whether staffID is off on day
func (o DaysOff) Off(staffID string, day int) bool {
	return o[staffID][day]
}

// Problem is everything the engine needs to build one month
type Problem struct {
	Calendar calendar.Calendar
	Staff    []Staff
	// Shifts are in declaration order, which fixes the order slots are filled
	// and reported in.
	Shifts  []ShiftType
	Demand  Demand
	DaysOff DaysOff
}

// Table is the assignment table: day -> shift code -> staff ids in assignment order
type Table map[int]map[string][]string

// Assigned returns the staff ids assigned to a slot
func (t Table) Assigned(day int, code string) []string {
	return t[day][code]
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for day, byCode := range t {
		out[day] = make(map[string][]string, len(byCode))
		for code, ids := range byCode {
			out[day][code] = append([]string{}, ids...)
		}
	}
	return out
}

// DaysWorked counts the days on which each staff id appears
func (t Table) DaysWorked() map[string]int {
	counts := make(map[string]int)
	for _, byCode := range t {
		for _, ids := range byCode {
			for _, id := range ids {
				counts[id]++
			}
		}
	}
	return counts
}
