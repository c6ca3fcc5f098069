// Package roster validates inbound rosters, turns them into engine problems
// and shapes the generate-shift envelope.
package roster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/arnavshah/shift-roster-api/pkg/calendar"
	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
)

// DefaultHeadcount is used for shifts that do not declare a required headcount
const DefaultHeadcount = 1

// Build validates a roster and converts it into an engine problem. Stale
// references (unknown staff ids or shift codes, days outside the month) are
// dropped and reported as warnings; structural problems return a
// *ValidationError.
func Build(r *models.Roster) (*scheduler.Problem, []string, error) {
	if r == nil {
		return nil, nil, invalidf("roster is required")
	}
	if err := checkStruct(r); err != nil {
		return nil, nil, err
	}

	b := &builder{roster: r}
	b.problem = &scheduler.Problem{
		Calendar: calendar.Expand(r.Year, r.Month, r.Days, r.WeekdayOfDay1),
		Demand:   make(scheduler.Demand),
		DaysOff:  make(scheduler.DaysOff),
	}
	if r.Days != calendar.DaysIn(r.Year, r.Month) {
		b.warnf("days is %d but %04d-%02d has %d days", r.Days, r.Year, r.Month, calendar.DaysIn(r.Year, r.Month))
	}

	if err := b.shifts(); err != nil {
		return nil, nil, err
	}
	if err := b.staff(); err != nil {
		return nil, nil, err
	}
	b.wishOffs()

	return b.problem, b.warnings, nil
}

type builder struct {
	roster   *models.Roster
	problem  *scheduler.Problem
	warnings []string
	declared map[string]bool
}

func (b *builder) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// shifts declares the shift codes and fills the demand table
func (b *builder) shifts() error {
	r := b.roster
	if len(r.Shifts) == 0 && len(r.Requirements) == 0 {
		return invalidf("shifts must be provided")
	}

	b.declared = make(map[string]bool)
	defaults := make(map[string]func(time.Weekday) int)

	for i, sh := range r.Shifts {
		code := strings.TrimSpace(sh.Code)
		if code == "" {
			return invalidf("shifts[%d].code is required", i)
		}
		if b.declared[code] {
			return invalidf("duplicate shift code: %s", code)
		}
		b.declared[code] = true
		b.problem.Shifts = append(b.problem.Shifts, scheduler.ShiftType{
			Code:     code,
			Label:    sh.TimeRange,
			RestDays: sh.RestDays,
		})

		headcount := DefaultHeadcount
		if sh.Required != nil {
			headcount = *sh.Required
		}
		byWeekday := make(map[time.Weekday]int, len(sh.RequiredByWeekday))
		for label, n := range sh.RequiredByWeekday {
			wd, ok := calendar.ParseWeekday(label)
			if !ok {
				b.warnf("shift %s: unknown weekday %q in requiredByWeekday ignored", code, label)
				continue
			}
			byWeekday[wd] = n
		}
		defaults[code] = func(wd time.Weekday) int {
			if n, ok := byWeekday[wd]; ok {
				return n
			}
			return headcount
		}
	}

	// Without shift definitions the requirement table declares the codes
	implicit := len(r.Shifts) == 0
	if implicit {
		for _, req := range r.Requirements {
			code := strings.TrimSpace(req.Code)
			if !b.declared[code] {
				b.declared[code] = true
				b.problem.Shifts = append(b.problem.Shifts, scheduler.ShiftType{Code: code})
			}
		}
	}

	for _, d := range b.problem.Calendar.Days {
		for _, sh := range b.problem.Shifts {
			if def, ok := defaults[sh.Code]; ok {
				b.problem.Demand[scheduler.Slot{Day: d.Number, Code: sh.Code}] = def(d.Weekday)
			}
		}
	}

	for _, req := range r.Requirements {
		code := strings.TrimSpace(req.Code)
		if !b.declared[code] {
			b.warnf("requirement for unknown shift %s on day %d dropped", code, req.Day)
			continue
		}
		if !b.problem.Calendar.Contains(req.Day) {
			b.warnf("requirement for shift %s on day %d is outside the month and was dropped", code, req.Day)
			continue
		}
		b.problem.Demand[scheduler.Slot{Day: req.Day, Code: code}] = req.Count
	}

	if r.Rules != nil {
		codes := make([]string, 0, len(r.Rules.NightRest))
		for code := range r.Rules.NightRest {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			if !b.declared[code] {
				b.warnf("nightRest rule for unknown shift %s dropped", code)
				continue
			}
			for i := range b.problem.Shifts {
				if b.problem.Shifts[i].Code == code {
					b.problem.Shifts[i].RestDays = max(b.problem.Shifts[i].RestDays, r.Rules.NightRest[code])
				}
			}
		}
	}
	return nil
}

// staff converts people into engine staff and expands their fixed days off
func (b *builder) staff() error {
	r := b.roster
	seen := make(map[string]bool, len(r.People))

	for i, p := range r.People {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return invalidf("people[%d].id is required", i)
		}
		if seen[id] {
			return invalidf("duplicate staff id: %s", id)
		}
		seen[id] = true

		monthlyMin := 0
		if p.MonthlyMin != nil {
			monthlyMin = *p.MonthlyMin
		}
		monthlyMax := r.Days
		if p.MonthlyMax != nil {
			monthlyMax = *p.MonthlyMax
		}
		if monthlyMin > monthlyMax {
			return invalidf("monthlyMax must be greater than or equal to monthlyMin for %s", id)
		}

		var eligible []string
		for _, code := range p.CanWork {
			code = strings.TrimSpace(code)
			if code != "" {
				eligible = append(eligible, code)
			}
		}

		b.problem.Staff = append(b.problem.Staff, scheduler.Staff{
			ID:             id,
			Eligible:       eligible,
			MonthlyMin:     monthlyMin,
			MonthlyMax:     monthlyMax,
			WeeklyMax:      p.WeeklyMax,
			ConsecutiveMax: p.ConsecMax,
		})

		for _, label := range p.FixedOffWeekdays {
			wd, ok := calendar.ParseWeekday(label)
			if !ok {
				b.warnf("staff %s: unknown weekday %q in fixedOffWeekdays ignored", id, label)
				continue
			}
			for _, d := range b.problem.Calendar.Days {
				if d.Weekday == wd {
					b.problem.DaysOff.Add(id, d.Number)
				}
			}
		}

		if p.OffRule != "" {
			days, err := expandRule(p.OffRule, b.problem.Calendar)
			if err != nil {
				return invalidf("invalid offRule for %s: %v", id, err)
			}
			for _, day := range days {
				b.problem.DaysOff.Add(id, day)
			}
		}
	}
	return nil
}

// expandRule lists the days of the month an RRULE falls on. The rule starts
// on day 1 unless it carries its own DTSTART.
func expandRule(rule string, cal calendar.Calendar) ([]int, error) {
	rule = strings.TrimSpace(rule)
	rule = strings.TrimPrefix(rule, "RRULE:")
	rr, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, err
	}
	if len(cal.Days) == 0 {
		return nil, nil
	}
	first := cal.Date(1)
	// the whole of the last day, so a rule starting at a time of day still
	// matches it
	last := cal.Date(len(cal.Days) + 1).Add(-time.Nanosecond)
	if !strings.Contains(strings.ToUpper(rule), "DTSTART") {
		rr.DTStart(first)
	}

	var days []int
	for _, t := range rr.Between(first, last, true) {
		if t.Year() == cal.Year && int(t.Month()) == cal.Month {
			days = append(days, t.Day())
		}
	}
	return days, nil
}

// wishOffs merges requested days off. Unknown staff are dropped with a
// warning; days outside the month or not whole numbers are ignored.
func (b *builder) wishOffs() {
	known := make(map[string]bool, len(b.problem.Staff))
	for _, st := range b.problem.Staff {
		known[st.ID] = true
	}

	ids := make([]string, 0, len(b.roster.WishOffs))
	for id := range b.roster.WishOffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !known[id] {
			b.warnf("wish-offs for unknown staff %s dropped", id)
			continue
		}
		for _, day := range b.roster.WishOffs[id] {
			if day != math.Trunc(day) || !b.problem.Calendar.Contains(int(day)) {
				continue
			}
			b.problem.DaysOff.Add(id, int(day))
		}
	}
}

// Outcome is a completed generation
type Outcome struct {
	Problem   *scheduler.Problem
	Result    scheduler.Result
	Shortages []scheduler.Shortage
	Warnings  []string
}

// Run validates the roster, generates the month and reports shortages
func Run(ctx context.Context, r *models.Roster, opts scheduler.Options) (*Outcome, error) {
	problem, warnings, err := Build(r)
	if err != nil {
		return nil, err
	}
	res := scheduler.Generate(ctx, problem, opts)
	return &Outcome{
		Problem:   problem,
		Result:    res,
		Shortages: scheduler.Shortages(problem, res.Table, res.Conflicts),
		Warnings:  warnings,
	}, nil
}

// Generate runs a roster and returns the success envelope. Business
// infeasibility is reported through shortages; only structural problems
// return an error.
func Generate(ctx context.Context, r *models.Roster, opts scheduler.Options) (*models.GenerateResponse, error) {
	out, err := Run(ctx, r, opts)
	if err != nil {
		return nil, err
	}
	return out.Response(uuid.NewString()), nil
}

// Response shapes the outcome into the generate-shift envelope
func (o *Outcome) Response(requestID string) *models.GenerateResponse {
	shifts := make(map[string]map[string][]string, len(o.Result.Table))
	for day, byCode := range o.Result.Table {
		shifts[strconv.Itoa(day)] = byCode
	}

	shortages := make([]models.Shortage, 0, len(o.Shortages))
	for _, sh := range o.Shortages {
		shortages = append(shortages, models.Shortage{
			Date:          sh.Day,
			TimeRange:     sh.Label,
			ShortageCount: sh.Count,
			ShiftCode:     sh.Code,
			Reasons:       sh.Reasons,
		})
	}

	worked := o.Result.Table.DaysWorked()
	staff := make(map[string]models.StaffSummary, len(o.Problem.Staff))
	for _, st := range o.Problem.Staff {
		staff[st.ID] = models.StaffSummary{
			AssignedDays: worked[st.ID],
			MonthlyMin:   st.MonthlyMin,
			MonthlyMax:   st.MonthlyMax,
		}
	}

	return &models.GenerateResponse{
		Status:    models.StatusSuccess,
		Shifts:    shifts,
		Shortages: shortages,
		Feasible:  o.Result.Feasible,
		Warnings:  o.Warnings,
		Summary: &models.Summary{
			RequestID:        requestID,
			FairnessScore:    scheduler.FairnessScore(o.Problem.Staff, o.Result.Table),
			RepairIterations: o.Result.RepairIterations,
			RepairExhausted:  o.Result.RepairExhausted,
			Staff:            staff,
		},
	}
}
