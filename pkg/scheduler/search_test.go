package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/shift-roster-api/pkg/calendar"
)

func demandOn(code string, days ...int) Demand {
	d := make(Demand)
	for _, day := range days {
		d[Slot{Day: day, Code: code}] = 1
	}
	return d
}

func TestGenerate_BacktracksOutOfGreedyDeadEnd(t *testing.T) {
	// Greedy puts b on day 2 and runs out of people for day 8
	cal := calendar.Expand(2025, 6, 8, 0)
	p := &Problem{
		Calendar: cal,
		Staff: []Staff{
			{ID: "a", Eligible: []string{"A"}, MonthlyMin: 2, MonthlyMax: 3, ConsecutiveMax: 1},
			{ID: "b", Eligible: []string{"A"}, MonthlyMin: 3, MonthlyMax: 3, ConsecutiveMax: 1},
		},
		Shifts:  []ShiftType{{Code: "A"}},
		Demand:  demandOn("A", 2, 3, 4, 6, 7, 8),
		DaysOff: DaysOff{},
	}
	p.DaysOff.Add("a", 8)
	p.DaysOff.Add("b", 5)

	res := Generate(context.Background(), p, DefaultOptions())

	require.True(t, res.Feasible)
	assert.Empty(t, res.Conflicts)
	assert.False(t, res.RepairExhausted)
	want := map[int]string{2: "a", 3: "b", 4: "a", 6: "b", 7: "a", 8: "b"}
	for day, id := range want {
		assert.Equal(t, []string{id}, res.Table.Assigned(day, "A"), "day %d", day)
	}
	assertInvariants(t, p, res.Table)
}

func TestGenerate_BacktrackingReachesMinimums(t *testing.T) {
	// Greedy staffs every day but leaves a one day short of their minimum,
	// and no single swap can give it back.
	cal := calendar.Expand(2025, 6, 8, 0)
	p := &Problem{
		Calendar: cal,
		Staff: []Staff{
			{ID: "a", Eligible: []string{"A"}, MonthlyMin: 3, MonthlyMax: 3, WeeklyMax: 3},
			{ID: "b", Eligible: []string{"A"}, MonthlyMin: 1, MonthlyMax: 3, WeeklyMax: 2, ConsecutiveMax: 1},
			{ID: "c", Eligible: []string{"A"}, MonthlyMin: 1, MonthlyMax: 3, WeeklyMax: 2, ConsecutiveMax: 1},
		},
		Shifts:  []ShiftType{{Code: "A"}},
		Demand:  demandOn("A", 1, 2, 3, 4, 8),
		DaysOff: DaysOff{},
	}
	p.DaysOff.Add("a", 3)
	p.DaysOff.Add("a", 8)
	p.DaysOff.Add("c", 1)

	res := Generate(context.Background(), p, DefaultOptions())

	require.True(t, res.Feasible)
	assert.Equal(t, map[string]int{"a": 3, "b": 1, "c": 1}, res.Table.DaysWorked())
	assert.Equal(t, []string{"a"}, res.Table.Assigned(4, "A"))
	assert.Equal(t, []string{"c"}, res.Table.Assigned(8, "A"))
	assertInvariants(t, p, res.Table)
}

func TestGenerate_SearchKeepsGreedyTableWhenBudgetRunsOut(t *testing.T) {
	p := randomProblem(3)

	res := Generate(context.Background(), p, Options{MaxRepairIterations: 1, TimeBudget: time.Minute})

	assertInvariants(t, p, res.Table)
	assert.Equal(t, len(Shortages(p, res.Table, res.Conflicts)) == 0, res.Feasible)
}

func TestGenerate_HopelessMonthSkipsSearch(t *testing.T) {
	p := singleStaffProblem(31)
	p.DaysOff.Add("s1", 3)

	s := NewScheduler(p, DefaultOptions())
	res := s.Run(context.Background())

	assert.False(t, res.Feasible)
	assert.False(t, res.RepairExhausted)
	assert.Equal(t, 29, res.Table.DaysWorked()["s1"])
	assert.Less(t, res.RepairIterations, 10)
}

// exhaustive enumerates every assignment of a one-shift problem and reports
// whether any staffs every slot, and whether any also meets every minimum.
func exhaustive(p *Problem, code string) (staffed, strict bool) {
	var days []int
	for _, d := range p.Calendar.Days {
		if p.Demand.Required(d.Number, code) > 0 {
			days = append(days, d.Number)
		}
	}

	pick := make(map[int]string, len(days))
	var walk func(i int)
	walk = func(i int) {
		if strict {
			return
		}
		if i == len(days) {
			ok, mins := check(p, pick)
			if ok {
				staffed = true
				strict = strict || mins
			}
			return
		}
		for _, st := range p.Staff {
			pick[days[i]] = st.ID
			walk(i + 1)
		}
		delete(pick, days[i])
	}
	walk(0)
	return staffed, strict
}

// check tests a day -> staff id pick against the hard constraints and the
// monthly minimums.
func check(p *Problem, pick map[int]string) (ok, mins bool) {
	mins = true
	for _, st := range p.Staff {
		weekly := make(map[int]int)
		total, run := 0, 0
		for _, d := range p.Calendar.Days {
			id, worked := pick[d.Number]
			if !worked || id != st.ID {
				run = 0
				continue
			}
			if p.DaysOff.Off(st.ID, d.Number) {
				return false, false
			}
			total++
			run++
			weekly[d.Week]++
			if st.ConsecutiveMax > 0 && run > st.ConsecutiveMax {
				return false, false
			}
			if st.WeeklyMax > 0 && weekly[d.Week] > st.WeeklyMax {
				return false, false
			}
		}
		if total > st.MonthlyMax {
			return false, false
		}
		if total < st.MonthlyMin {
			mins = false
		}
	}
	return true, mins
}

func TestGenerate_MatchesExhaustiveSearchOnSmallMonths(t *testing.T) {
	cal := calendar.Expand(2025, 6, 8, 0)
	ids := []string{"a", "b", "c"}

	for seed := int64(1); seed <= 400; seed++ {
		r := rand.New(rand.NewSource(seed))
		p := &Problem{
			Calendar: cal,
			Shifts:   []ShiftType{{Code: "A"}},
			Demand:   make(Demand),
			DaysOff:  make(DaysOff),
		}
		for _, d := range cal.Days {
			if r.Intn(4) > 0 {
				p.Demand[Slot{Day: d.Number, Code: "A"}] = 1
			}
		}
		for _, id := range ids[:2+r.Intn(2)] {
			minDays := r.Intn(4)
			p.Staff = append(p.Staff, Staff{
				ID:             id,
				Eligible:       []string{"A"},
				MonthlyMin:     minDays,
				MonthlyMax:     minDays + r.Intn(3),
				WeeklyMax:      r.Intn(5),
				ConsecutiveMax: r.Intn(4),
			})
			for i := r.Intn(3); i > 0; i-- {
				p.DaysOff.Add(id, 1+r.Intn(8))
			}
		}

		staffed, strict := exhaustive(p, "A")
		res := Generate(context.Background(), p, Options{MaxRepairIterations: 1_000_000, TimeBudget: time.Minute})

		assertInvariants(t, p, res.Table)
		if staffed {
			assert.True(t, res.Feasible, "seed %d", seed)
		}
		if strict {
			worked := res.Table.DaysWorked()
			for _, st := range p.Staff {
				assert.GreaterOrEqual(t, worked[st.ID], st.MonthlyMin, "seed %d staff %s", seed, st.ID)
			}
		}
	}
}
