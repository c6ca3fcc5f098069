package scheduler

import "context"

// seat is one unit of required headcount on a slot
type seat struct {
	day  int
	code string
	// daysLeft counts the calendar days from this seat's day to the end of
	// the month, inclusive.
	daysLeft int
}

func (s *Scheduler) seats() []seat {
	var out []seat
	for i, d := range s.problem.Calendar.Days {
		left := len(s.problem.Calendar.Days) - i
		for _, sh := range s.problem.Shifts {
			for n := s.problem.Demand.Required(d.Number, sh.Code); n > 0; n-- {
				out = append(out, seat{day: d.Number, code: sh.Code, daysLeft: left})
			}
		}
	}
	return out
}

// satisfied reports whether every slot is staffed and every member has
// reached their monthly minimum.
func (s *Scheduler) satisfied() bool {
	return s.unmetSlots() == 0 && len(s.underMinimum()) == 0
}

// hopeless reports whether some slot needs more people than could ever work
// it. No amount of search staffs such a month.
func (s *Scheduler) hopeless() bool {
	for _, d := range s.problem.Calendar.Days {
		for _, sh := range s.problem.Shifts {
			required := s.problem.Demand.Required(d.Number, sh.Code)
			if required == 0 {
				continue
			}
			pool := 0
			for _, m := range s.members {
				if m.CanWork(sh.Code) && m.MonthlyMax > 0 && !s.problem.DaysOff.Off(m.ID, d.Number) {
					pool++
				}
			}
			if pool < required {
				return true
			}
		}
	}
	return false
}

// backtrack replaces a greedy table that left gaps with one found by an
// exhaustive search. Full staffing is looked for first; a table that also
// meets every monthly minimum is looked for next. The best table found so far
// is kept when a search fails or the budget runs out.
func (s *Scheduler) backtrack(ctx context.Context) {
	best := s.table.Clone()
	if s.unmetSlots() > 0 {
		if !s.search(ctx, false) {
			s.restore(best)
			return
		}
		if len(s.underMinimum()) == 0 {
			return
		}
		best = s.table.Clone()
	}
	if !s.search(ctx, true) {
		s.restore(best)
	}
}

// search fills every seat of the month depth first, undoing picks that lead
// to a dead end. With strict set a complete table must also bring every
// member to their monthly minimum. On success the table holds the result.
func (s *Scheduler) search(ctx context.Context, strict bool) bool {
	s.restore(s.emptyTable())
	return s.place(ctx, s.seats(), 0, strict)
}

func (s *Scheduler) place(ctx context.Context, seats []seat, i int, strict bool) bool {
	if i == len(seats) {
		return !strict || len(s.underMinimum()) == 0
	}
	if !s.step(ctx) {
		return false
	}
	st := seats[i]
	if strict && !s.minimumsReachable(st, len(seats)-i) {
		return false
	}

	// members fill a slot in id order so the same crew is never tried twice
	held := s.table[st.day][st.code]
	var candidates []*member
	for _, m := range s.members {
		if len(held) > 0 && m.ID <= held[len(held)-1] {
			continue
		}
		if s.blockReason(m, st.day, st.code) == "" {
			candidates = append(candidates, m)
		}
	}
	rank(candidates)

	for _, m := range candidates {
		s.assign(m, st.day, st.code)
		if s.place(ctx, seats, i+1, strict) {
			return true
		}
		s.unassign(m, st.day, st.code)
		if s.exhausted {
			return false
		}
	}
	return false
}

// minimumsReachable reports whether the seats still open could bring every
// member up to their minimum.
func (s *Scheduler) minimumsReachable(next seat, open int) bool {
	total := 0
	for _, m := range s.members {
		need := m.need()
		if need == 0 {
			continue
		}
		days := next.daysLeft
		if _, booked := m.days[next.day]; booked {
			days--
		}
		if need > days {
			return false
		}
		total += need
	}
	return total <= open
}

func (s *Scheduler) unassign(m *member, day int, code string) {
	ids := s.table[day][code]
	for i, id := range ids {
		if id == m.ID {
			s.table[day][code] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	delete(m.days, day)
	m.weekly[s.problem.Calendar.WeekOf(day)]--
}

func (s *Scheduler) emptyTable() Table {
	t := make(Table, len(s.problem.Calendar.Days))
	for _, d := range s.problem.Calendar.Days {
		t[d.Number] = make(map[string][]string, len(s.problem.Shifts))
		for _, sh := range s.problem.Shifts {
			t[d.Number][sh.Code] = []string{}
		}
	}
	return t
}

// restore makes t the current table and rebuilds every member's bookkeeping
// from it.
func (s *Scheduler) restore(t Table) {
	for _, m := range s.members {
		m.days = make(map[int]string)
		m.weekly = make(map[int]int)
	}
	s.table = t
	for day, byCode := range t {
		week := s.problem.Calendar.WeekOf(day)
		for code, ids := range byCode {
			for _, id := range ids {
				m := s.byID[id]
				m.days[day] = code
				m.weekly[week]++
			}
		}
	}
}
