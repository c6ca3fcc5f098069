package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultMaxRepairIterations bounds the number of repair moves evaluated
	DefaultMaxRepairIterations = 20000
	// DefaultTimeBudget bounds the wall time spent in the repair phase
	DefaultTimeBudget = 5 * time.Second
)

// Options bounds the repair phase. Zero values fall back to the defaults.
type Options struct {
	MaxRepairIterations int
	TimeBudget          time.Duration
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		MaxRepairIterations: DefaultMaxRepairIterations,
		TimeBudget:          DefaultTimeBudget,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxRepairIterations <= 0 {
		o.MaxRepairIterations = DefaultMaxRepairIterations
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	return o
}

// Conflict explains why a slot could not be filled
type Conflict struct {
	Slot    Slot     `json:"slot"`
	Reasons []string `json:"reasons"`
}

// Result is the outcome of one generation
type Result struct {
	Table Table
	// Feasible is true when every slot has its required headcount
	Feasible  bool
	Conflicts []Conflict
	// RepairIterations is the number of repair moves evaluated
	RepairIterations int
	// RepairExhausted is set when the repair phase stopped on its budget or
	// on context cancellation instead of running out of moves.
	RepairExhausted bool
}

// member tracks the running bookkeeping for one staff member
type member struct {
	Staff
	days   map[int]string // day -> code
	weekly map[int]int    // week index -> days worked
}

func (m *member) worked() int {
	return len(m.days)
}

// need is how many more days the member must work to reach their minimum
func (m *member) need() int {
	return max(0, m.MonthlyMin-len(m.days))
}

// Scheduler handles the logic of assigning staff to the slots of a month
type Scheduler struct {
	problem  *Problem
	opts     Options
	members  []*member
	byID     map[string]*member
	restDays map[string]int
	table    Table

	iterations int
	exhausted  bool
	deadline   time.Time
}

// NewScheduler creates a new scheduler instance for a problem
func NewScheduler(problem *Problem, opts Options) *Scheduler {
	s := &Scheduler{
		problem:  problem,
		opts:     opts.withDefaults(),
		restDays: make(map[string]int, len(problem.Shifts)),
	}
	for _, sh := range problem.Shifts {
		s.restDays[sh.Code] = sh.RestDays
	}
	return s
}

// Generate builds the assignment table for a month. It never fails for
// business reasons: unfillable slots are left short and reported through
// Result.Feasible and Result.Conflicts.
func Generate(ctx context.Context, problem *Problem, opts Options) Result {
	return NewScheduler(problem, opts).Run(ctx)
}

// Run performs the greedy construction followed by the bounded repair phase.
// When gaps remain and no slot is out of reach, a backtracking search takes
// over within the same budget.
func (s *Scheduler) Run(ctx context.Context) Result {
	s.reset()

	for _, d := range s.problem.Calendar.Days {
		for _, sh := range s.problem.Shifts {
			s.fillSlot(d.Number, sh.Code)
		}
	}

	s.deadline = time.Now().Add(s.opts.TimeBudget)
	s.repair(ctx)
	if !s.exhausted && !s.satisfied() && !s.hopeless() {
		s.backtrack(ctx)
	}

	return Result{
		Table:            s.table.Clone(),
		Feasible:         s.unmetSlots() == 0,
		Conflicts:        s.conflicts(),
		RepairIterations: s.iterations,
		RepairExhausted:  s.exhausted,
	}
}

func (s *Scheduler) reset() {
	s.members = make([]*member, 0, len(s.problem.Staff))
	s.byID = make(map[string]*member, len(s.problem.Staff))
	for _, st := range s.problem.Staff {
		m := &member{Staff: st, days: make(map[int]string), weekly: make(map[int]int)}
		s.members = append(s.members, m)
		s.byID[st.ID] = m
	}
	sort.Slice(s.members, func(i, j int) bool {
		return s.members[i].ID < s.members[j].ID
	})

	s.table = s.emptyTable()
	s.iterations = 0
	s.exhausted = false
}

// fillSlot assigns ranked candidates until the slot is staffed or the pool is
// empty. It reports whether anyone was assigned.
func (s *Scheduler) fillSlot(day int, code string) bool {
	missing := s.problem.Demand.Required(day, code) - len(s.table[day][code])
	if missing <= 0 {
		return false
	}

	var candidates []*member
	for _, m := range s.members {
		if s.blockReason(m, day, code) == "" {
			candidates = append(candidates, m)
		}
	}
	rank(candidates)

	assigned := 0
	for _, m := range candidates {
		if assigned == missing {
			break
		}
		s.assign(m, day, code)
		assigned++
	}
	return assigned > 0
}

// rank orders candidates so the ones who still need days towards their
// monthly minimum come first, then the least loaded, then by id.
func rank(candidates []*member) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.need() != b.need() {
			return a.need() > b.need()
		}
		if a.worked() != b.worked() {
			return a.worked() < b.worked()
		}
		return a.ID < b.ID
	})
}

const (
	reasonIneligible  = "not eligible for the shift"
	reasonDayOff      = "on a day off"
	reasonBooked      = "already working another shift that day"
	reasonMonthlyMax  = "at monthly max"
	reasonWeeklyMax   = "at weekly max"
	reasonConsecutive = "at consecutive day max"
	reasonResting     = "resting after a previous shift"
)

// blockReason returns why m cannot take the slot, or "" when they can
func (s *Scheduler) blockReason(m *member, day int, code string) string {
	if !m.CanWork(code) {
		return reasonIneligible
	}
	if s.problem.DaysOff.Off(m.ID, day) {
		return reasonDayOff
	}
	if _, booked := m.days[day]; booked {
		return reasonBooked
	}
	if m.worked() >= m.MonthlyMax {
		return reasonMonthlyMax
	}
	if m.WeeklyMax > 0 && m.weekly[s.problem.Calendar.WeekOf(day)] >= m.WeeklyMax {
		return reasonWeeklyMax
	}
	if m.ConsecutiveMax > 0 && s.runLength(m, day) > m.ConsecutiveMax {
		return reasonConsecutive
	}
	if s.resting(m, day, code) {
		return reasonResting
	}
	return ""
}

// runLength is the length of the run of worked days that would contain day
// if m were assigned on it.
func (s *Scheduler) runLength(m *member, day int) int {
	run := 1
	for d := day - 1; ; d-- {
		if _, ok := m.days[d]; !ok {
			break
		}
		run++
	}
	for d := day + 1; ; d++ {
		if _, ok := m.days[d]; !ok {
			break
		}
		run++
	}
	return run
}

// resting reports whether working code on day clashes with a rest period,
// either one following an earlier shift or the one code itself requires.
func (s *Scheduler) resting(m *member, day int, code string) bool {
	for d, c := range m.days {
		if d < day && day-d <= s.restDays[c] {
			return true
		}
		if d > day && d-day <= s.restDays[code] {
			return true
		}
	}
	return false
}

func (s *Scheduler) assign(m *member, day int, code string) {
	s.table[day][code] = append(s.table[day][code], m.ID)
	m.days[day] = code
	m.weekly[s.problem.Calendar.WeekOf(day)]++
}

// replace swaps out for in on a slot, keeping the slot's order
func (s *Scheduler) replace(out, in *member, day int, code string) {
	ids := s.table[day][code]
	for i, id := range ids {
		if id == out.ID {
			ids[i] = in.ID
			break
		}
	}
	week := s.problem.Calendar.WeekOf(day)
	delete(out.days, day)
	out.weekly[week]--
	in.days[day] = code
	in.weekly[week]++
}

// step charges one repair move or search node against the budget. It returns
// false once the iteration budget, the time budget or the context is exhausted.
func (s *Scheduler) step(ctx context.Context) bool {
	if s.exhausted {
		return false
	}
	s.iterations++
	if s.iterations > s.opts.MaxRepairIterations || ctx.Err() != nil || time.Now().After(s.deadline) {
		s.exhausted = true
		return false
	}
	return true
}

// repair alternates gap filling and minimum swaps until neither makes
// progress or the budget runs out.
func (s *Scheduler) repair(ctx context.Context) {
	for {
		progressed := false

		for _, d := range s.problem.Calendar.Days {
			for _, sh := range s.problem.Shifts {
				if len(s.table[d.Number][sh.Code]) >= s.problem.Demand.Required(d.Number, sh.Code) {
					continue
				}
				if !s.step(ctx) {
					return
				}
				if s.fillSlot(d.Number, sh.Code) {
					progressed = true
				}
			}
		}

		for _, m := range s.underMinimum() {
			if s.raiseToMinimum(ctx, m) {
				progressed = true
			}
			if s.exhausted {
				return
			}
		}

		if !progressed {
			return
		}
	}
}

// underMinimum lists the members below their monthly minimum, neediest first
func (s *Scheduler) underMinimum() []*member {
	var out []*member
	for _, m := range s.members {
		if m.need() > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].need() > out[j].need()
	})
	return out
}

// raiseToMinimum moves m into slots held by members who are above their own
// minimum. Headcounts are unchanged, so no shortage grows.
func (s *Scheduler) raiseToMinimum(ctx context.Context, m *member) bool {
	progressed := false
	for _, d := range s.problem.Calendar.Days {
		if m.need() == 0 {
			return progressed
		}
		for _, sh := range s.problem.Shifts {
			if !s.step(ctx) {
				return progressed
			}
			if s.blockReason(m, d.Number, sh.Code) != "" {
				continue
			}
			holder := s.surplusHolder(d.Number, sh.Code)
			if holder == nil {
				continue
			}
			s.replace(holder, m, d.Number, sh.Code)
			progressed = true
			break
		}
	}
	return progressed
}

// surplusHolder returns the first staff member on the slot who can give it up
// without dropping below their monthly minimum.
func (s *Scheduler) surplusHolder(day int, code string) *member {
	for _, id := range s.table[day][code] {
		h := s.byID[id]
		if h.worked() > h.MonthlyMin {
			return h
		}
	}
	return nil
}

func (s *Scheduler) unmetSlots() int {
	unmet := 0
	for _, d := range s.problem.Calendar.Days {
		for _, sh := range s.problem.Shifts {
			if len(s.table[d.Number][sh.Code]) < s.problem.Demand.Required(d.Number, sh.Code) {
				unmet++
			}
		}
	}
	return unmet
}

// conflicts explains every short slot by counting why each staff member
// could not take it.
func (s *Scheduler) conflicts() []Conflict {
	order := []string{
		reasonIneligible, reasonDayOff, reasonBooked, reasonMonthlyMax,
		reasonWeeklyMax, reasonConsecutive, reasonResting,
	}

	var out []Conflict
	for _, d := range s.problem.Calendar.Days {
		for _, sh := range s.problem.Shifts {
			assigned := s.table[d.Number][sh.Code]
			if len(assigned) >= s.problem.Demand.Required(d.Number, sh.Code) {
				continue
			}

			counts := make(map[string]int)
			free := 0
			for _, m := range s.members {
				if m.days[d.Number] == sh.Code {
					continue
				}
				if r := s.blockReason(m, d.Number, sh.Code); r != "" {
					counts[r]++
				} else {
					free++
				}
			}

			var reasons []string
			for _, r := range order {
				if counts[r] > 0 {
					reasons = append(reasons, fmt.Sprintf("%d staff %s", counts[r], r))
				}
			}
			if free > 0 {
				reasons = append(reasons, fmt.Sprintf("%d staff left unassigned when the repair budget ran out", free))
			}
			if len(s.members) == 0 {
				reasons = append(reasons, "no staff on the roster")
			}

			out = append(out, Conflict{
				Slot:    Slot{Day: d.Number, Code: sh.Code},
				Reasons: reasons,
			})
		}
	}
	return out
}
