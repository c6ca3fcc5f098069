package models

// Person is a staff member as edited by the operator
type Person struct {
	ID         string   `json:"id" validate:"required"`
	CanWork    []string `json:"canWork"`
	MonthlyMin *int     `json:"monthlyMin,omitempty" validate:"omitempty,min=0"`
	MonthlyMax *int     `json:"monthlyMax,omitempty" validate:"omitempty,min=0"`
	WeeklyMax  int      `json:"weeklyMax" validate:"min=0"`
	ConsecMax  int      `json:"consecMax" validate:"min=0"`
	// FixedOffWeekdays are weekday labels (日..土 or English names) never worked
	FixedOffWeekdays []string `json:"fixedOffWeekdays,omitempty"`
	// OffRule is an RRULE describing recurring days off, e.g. FREQ=WEEKLY;BYDAY=SA
	OffRule string `json:"offRule,omitempty"`

	Extra Extra `json:"-"`
}

// Shift declares a shift code and its default daily headcount
type Shift struct {
	Code              string         `json:"code" validate:"required"`
	TimeRange         string         `json:"timeRange,omitempty"`
	Required          *int           `json:"required,omitempty" validate:"omitempty,min=0"`
	RequiredByWeekday map[string]int `json:"requiredByWeekday,omitempty" validate:"omitempty,dive,min=0"`
	RestDays          int            `json:"restDays,omitempty" validate:"min=0"`

	Extra Extra `json:"-"`
}

// Requirement overrides the headcount of one (day, code) slot
type Requirement struct {
	Day   int    `json:"day"`
	Code  string `json:"code" validate:"required"`
	Count int    `json:"count" validate:"min=0"`

	Extra Extra `json:"-"`
}

// Rules are roster-wide scheduling rules
type Rules struct {
	// NightRest maps shift code to the number of rest days after working it
	NightRest map[string]int `json:"nightRest,omitempty" validate:"omitempty,dive,min=0"`

	Extra Extra `json:"-"`
}

// Roster is the initial data shape served to the UI and posted back to
// generate a month. Unknown fields are carried in Extra.
type Roster struct {
	Year          int                  `json:"year" validate:"min=1"`
	Month         int                  `json:"month" validate:"min=1,max=12"`
	Days          int                  `json:"days" validate:"min=1,max=31"`
	WeekdayOfDay1 int                  `json:"weekdayOfDay1"`
	Shifts        []Shift              `json:"shifts,omitempty" validate:"dive"`
	Requirements  []Requirement        `json:"requirements,omitempty" validate:"dive"`
	People        []Person             `json:"people" validate:"required,min=1,dive"`
	WishOffs      map[string][]float64 `json:"wishOffs"`
	Rules         *Rules               `json:"rules,omitempty"`

	Extra Extra `json:"-"`
}

// Status values of the generate-shift envelope
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Shortage is the serialized form of an understaffed slot
type Shortage struct {
	Date          int      `json:"date"`
	TimeRange     string   `json:"time_range"`
	ShortageCount int      `json:"shortage_count"`
	ShiftCode     string   `json:"shift_code,omitempty"`
	Reasons       []string `json:"reasons,omitempty"`
}

// StaffSummary reports how many days one staff member was given
type StaffSummary struct {
	AssignedDays int `json:"assignedDays"`
	MonthlyMin   int `json:"monthlyMin"`
	MonthlyMax   int `json:"monthlyMax"`
}

// Summary carries generation statistics alongside the table
type Summary struct {
	RequestID        string                  `json:"requestId"`
	FairnessScore    float64                 `json:"fairnessScore"`
	RepairIterations int                     `json:"repairIterations"`
	RepairExhausted  bool                    `json:"repairExhausted,omitempty"`
	Staff            map[string]StaffSummary `json:"staff"`
}

// GenerateResponse is the success envelope of generate-shift
type GenerateResponse struct {
	Status    string                         `json:"status"`
	Shifts    map[string]map[string][]string `json:"shifts"`
	Shortages []Shortage                     `json:"shortages"`
	Feasible  bool                           `json:"feasible"`
	Warnings  []string                       `json:"warnings,omitempty"`
	Summary   *Summary                       `json:"summary,omitempty"`
}

// ErrorResponse is the failure envelope of generate-shift
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Failure builds a failure envelope
func Failure(message string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message}
}
