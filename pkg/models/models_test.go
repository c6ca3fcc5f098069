package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterWithExtras = `{
	"year": 2025,
	"month": 6,
	"days": 30,
	"weekdayOfDay1": 0,
	"facility": {"name": "East Ward"},
	"shifts": [{"code": "A", "timeRange": "9:00-18:00", "color": "#ff0000"}],
	"people": [
		{"id": "s1", "canWork": ["A"], "monthlyMin": 0, "monthlyMax": 20, "weeklyMax": 5, "consecMax": 4, "displayName": "Sato"}
	],
	"requirements": [{"day": 1, "code": "A", "count": 2, "note": "inspection"}],
	"rules": {"nightRest": {"A": 1}, "maxNightsPerMonth": 8},
	"wishOffs": {"s1": [3, 4]}
}`

func TestRoster_PreservesUnknownFields(t *testing.T) {
	var r Roster
	require.NoError(t, json.Unmarshal([]byte(rosterWithExtras), &r))

	assert.Equal(t, 2025, r.Year)
	require.Len(t, r.People, 1)
	require.NotNil(t, r.People[0].MonthlyMax)
	assert.Equal(t, 20, *r.People[0].MonthlyMax)
	assert.JSONEq(t, `{"name": "East Ward"}`, string(r.Extra["facility"]))
	assert.JSONEq(t, `"Sato"`, string(r.People[0].Extra["displayName"]))
	assert.JSONEq(t, `"#ff0000"`, string(r.Shifts[0].Extra["color"]))
	assert.NotContains(t, r.Extra, "people")
	require.Len(t, r.Requirements, 1)
	assert.Equal(t, 2, r.Requirements[0].Count)
	assert.JSONEq(t, `"inspection"`, string(r.Requirements[0].Extra["note"]))
	require.NotNil(t, r.Rules)
	assert.Equal(t, map[string]int{"A": 1}, r.Rules.NightRest)
	assert.JSONEq(t, `8`, string(r.Rules.Extra["maxNightsPerMonth"]))

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var again map[string]any
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, map[string]any{"name": "East Ward"}, again["facility"])
	person := again["people"].([]any)[0].(map[string]any)
	assert.Equal(t, "Sato", person["displayName"])
	assert.Equal(t, float64(20), person["monthlyMax"])
	req := again["requirements"].([]any)[0].(map[string]any)
	assert.Equal(t, "inspection", req["note"])
	assert.Equal(t, float64(2), req["count"])
	rules := again["rules"].(map[string]any)
	assert.Equal(t, float64(8), rules["maxNightsPerMonth"])
	assert.Equal(t, map[string]any{"A": float64(1)}, rules["nightRest"])
}

func TestRoster_DeclaredFieldsWinOverExtras(t *testing.T) {
	p := Person{ID: "s1", Extra: Extra{"id": json.RawMessage(`"other"`), "note": json.RawMessage(`1`)}}

	out, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "s1", m["id"])
	assert.Equal(t, float64(1), m["note"])
}

func TestFailure(t *testing.T) {
	out, err := json.Marshal(Failure("bad input"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "error", "message": "bad input"}`, string(out))
}
