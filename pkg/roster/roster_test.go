package roster

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
)

func intPtr(v int) *int { return &v }

func decode(t *testing.T, body string) *models.Roster {
	t.Helper()
	var r models.Roster
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return &r
}

// June 2025: 30 days, day 1 is a Sunday
const june = `{
	"year": 2025, "month": 6, "days": 30, "weekdayOfDay1": 0,
	"shifts": [
		{"code": "D", "timeRange": "9:00-18:00", "required": 2, "requiredByWeekday": {"日": 1}},
		{"code": "N", "timeRange": "22:00-7:00"}
	],
	"people": [
		{"id": "s1", "canWork": ["D", "N"], "monthlyMin": 5, "monthlyMax": 22, "weeklyMax": 5, "consecMax": 4},
		{"id": "s2", "canWork": ["D"], "weeklyMax": 5, "consecMax": 4, "fixedOffWeekdays": ["土"]},
		{"id": "s3", "canWork": ["D", "N"], "offRule": "FREQ=MONTHLY;BYMONTHDAY=1,15"}
	],
	"requirements": [
		{"day": 3, "code": "N", "count": 0},
		{"day": 40, "code": "N", "count": 1},
		{"day": 4, "code": "X", "count": 1}
	],
	"wishOffs": {"s1": [2, 2.5, 0, 31], "ghost": [1]},
	"rules": {"nightRest": {"N": 1, "Z": 2}}
}`

func TestBuild_Demand(t *testing.T) {
	p, _, err := Build(decode(t, june))
	require.NoError(t, err)

	require.Len(t, p.Shifts, 2)
	assert.Equal(t, "D", p.Shifts[0].Code)
	assert.Equal(t, "9:00-18:00", p.Shifts[0].DisplayLabel())

	// Sundays need one on D, other days two
	assert.Equal(t, 1, p.Demand.Required(1, "D"))
	assert.Equal(t, 2, p.Demand.Required(2, "D"))
	assert.Equal(t, 1, p.Demand.Required(8, "D"))
	// N defaults to one, day 3 overridden to zero
	assert.Equal(t, 1, p.Demand.Required(2, "N"))
	assert.Equal(t, 0, p.Demand.Required(3, "N"))
	// nightRest applied to N only
	assert.Equal(t, 1, p.Shifts[1].RestDays)
	assert.Equal(t, 0, p.Shifts[0].RestDays)
}

func TestBuild_StaffDefaultsAndDaysOff(t *testing.T) {
	p, _, err := Build(decode(t, june))
	require.NoError(t, err)

	require.Len(t, p.Staff, 3)
	assert.Equal(t, scheduler.Staff{
		ID: "s1", Eligible: []string{"D", "N"}, MonthlyMin: 5, MonthlyMax: 22, WeeklyMax: 5, ConsecutiveMax: 4,
	}, p.Staff[0])
	// monthlyMax defaults to the number of days
	assert.Equal(t, 0, p.Staff[1].MonthlyMin)
	assert.Equal(t, 30, p.Staff[1].MonthlyMax)

	// wish-offs keep only whole days inside the month
	assert.Equal(t, map[int]bool{2: true}, p.DaysOff["s1"])
	// Saturdays in June 2025
	assert.Equal(t, map[int]bool{7: true, 14: true, 21: true, 28: true}, p.DaysOff["s2"])
	// recurring rule
	assert.Equal(t, map[int]bool{1: true, 15: true}, p.DaysOff["s3"])
	assert.NotContains(t, p.DaysOff, "ghost")
}

func TestBuild_OffRuleWithTimeOfDayCoversLastDay(t *testing.T) {
	r := decode(t, june)
	r.People[2].OffRule = "FREQ=WEEKLY;BYDAY=MO;DTSTART=20250602T090000Z"

	p, _, err := Build(r)
	require.NoError(t, err)

	// Mondays in June 2025, including the 30th
	assert.Equal(t, map[int]bool{2: true, 9: true, 16: true, 23: true, 30: true}, p.DaysOff["s3"])
}

func TestBuild_Warnings(t *testing.T) {
	_, warnings, err := Build(decode(t, june))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"requirement for shift N on day 40 is outside the month and was dropped",
		"requirement for unknown shift X on day 4 dropped",
		"nightRest rule for unknown shift Z dropped",
		"wish-offs for unknown staff ghost dropped",
	}, warnings)
}

func TestBuild_ImplicitShiftsFromRequirements(t *testing.T) {
	p, _, err := Build(&models.Roster{
		Year: 2025, Month: 2, Days: 28, WeekdayOfDay1: 6,
		People: []models.Person{{ID: "s1", CanWork: []string{"B"}}},
		Requirements: []models.Requirement{
			{Day: 1, Code: "B", Count: 2},
			{Day: 2, Code: "A", Count: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, p.Shifts, 2)
	assert.Equal(t, "B", p.Shifts[0].Code)
	assert.Equal(t, "A", p.Shifts[1].Code)
	assert.Equal(t, 2, p.Demand.Required(1, "B"))
	assert.Equal(t, 0, p.Demand.Required(2, "B"))
	assert.Equal(t, 1, p.Demand.Required(2, "A"))
}

func TestBuild_ValidationErrors(t *testing.T) {
	base := func() *models.Roster {
		return &models.Roster{
			Year: 2025, Month: 6, Days: 30,
			Shifts: []models.Shift{{Code: "A"}},
			People: []models.Person{{ID: "s1", CanWork: []string{"A"}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(r *models.Roster)
		want   string
	}{
		{"no people", func(r *models.Roster) { r.People = nil }, "people is required"},
		{"empty people", func(r *models.Roster) { r.People = []models.Person{} }, "people must contain at least 1 entries"},
		{"zero days", func(r *models.Roster) { r.Days = 0 }, "days must be at least 1"},
		{"bad month", func(r *models.Roster) { r.Month = 13 }, "month must be at most 12"},
		{"missing id", func(r *models.Roster) { r.People[0].ID = "" }, "people[0].id is required"},
		{"duplicate id", func(r *models.Roster) {
			r.People = append(r.People, models.Person{ID: "s1"})
		}, "duplicate staff id: s1"},
		{"no shifts", func(r *models.Roster) { r.Shifts = nil }, "shifts must be provided"},
		{"duplicate shift", func(r *models.Roster) {
			r.Shifts = append(r.Shifts, models.Shift{Code: "A"})
		}, "duplicate shift code: A"},
		{"min above max", func(r *models.Roster) {
			r.People[0].MonthlyMin = intPtr(10)
			r.People[0].MonthlyMax = intPtr(5)
		}, "monthlyMax must be greater than or equal to monthlyMin for s1"},
		{"negative weekly", func(r *models.Roster) { r.People[0].WeeklyMax = -1 }, "people[0].weeklyMax must be at least 0"},
		{"negative requirement", func(r *models.Roster) {
			r.Requirements = []models.Requirement{{Day: 1, Code: "A", Count: -1}}
		}, "requirements[0].count must be at least 0"},
		{"bad rule", func(r *models.Roster) { r.People[0].OffRule = "FREQ=SOMETIMES" }, "invalid offRule for s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(r)

			_, _, err := Build(r)

			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerate_SuccessEnvelope(t *testing.T) {
	r := &models.Roster{
		Year: 2025, Month: 6, Days: 30,
		Shifts: []models.Shift{{Code: "A", TimeRange: "9-17"}},
		People: []models.Person{{ID: "s1", CanWork: []string{"A"}, MonthlyMax: intPtr(31), WeeklyMax: 7, ConsecMax: 31}},
		WishOffs: map[string][]float64{"s1": {10}},
	}

	resp, err := Generate(context.Background(), r, scheduler.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.False(t, resp.Feasible)
	assert.Len(t, resp.Shifts, 30)
	assert.Equal(t, []string{"s1"}, resp.Shifts["1"]["A"])
	assert.Equal(t, []string{}, resp.Shifts["10"]["A"])
	assert.Equal(t, []models.Shortage{{
		Date: 10, TimeRange: "9-17", ShortageCount: 1, ShiftCode: "A",
		Reasons: []string{"1 staff on a day off"},
	}}, resp.Shortages)

	require.NotNil(t, resp.Summary)
	assert.NotEmpty(t, resp.Summary.RequestID)
	assert.Equal(t, 29, resp.Summary.Staff["s1"].AssignedDays)
}

func TestGenerate_FeasibleHasEmptyShortages(t *testing.T) {
	r := &models.Roster{
		Year: 2025, Month: 6, Days: 30,
		Shifts: []models.Shift{{Code: "A"}},
		People: []models.Person{{ID: "s1", CanWork: []string{"A"}}},
	}

	resp, err := Generate(context.Background(), r, scheduler.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, resp.Feasible)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"shortages":[]`)
}

func TestGenerate_ValidationFailure(t *testing.T) {
	resp, err := Generate(context.Background(), &models.Roster{Year: 2025, Month: 6, Days: 30}, scheduler.DefaultOptions())

	assert.Nil(t, resp)
	assert.True(t, IsValidation(err))
}
