package scheduler

// Shortage is one understaffed slot
type Shortage struct {
	Day      int
	Code     string
	Label    string
	Required int
	Assigned int
	Count    int
	Reasons  []string
}

// Shortages diffs the table against the demand and returns one record per
// slot with fewer staff than required, ordered by day then by shift
// declaration order. Reasons are attached from conflicts when available.
func Shortages(problem *Problem, table Table, conflicts []Conflict) []Shortage {
	reasons := make(map[Slot][]string, len(conflicts))
	for _, c := range conflicts {
		reasons[c.Slot] = c.Reasons
	}

	out := []Shortage{}
	for _, d := range problem.Calendar.Days {
		for _, sh := range problem.Shifts {
			required := problem.Demand.Required(d.Number, sh.Code)
			assigned := len(table.Assigned(d.Number, sh.Code))
			if assigned >= required {
				continue
			}
			out = append(out, Shortage{
				Day:      d.Number,
				Code:     sh.Code,
				Label:    sh.DisplayLabel(),
				Required: required,
				Assigned: assigned,
				Count:    required - assigned,
				Reasons:  reasons[Slot{Day: d.Number, Code: sh.Code}],
			})
		}
	}
	return out
}
