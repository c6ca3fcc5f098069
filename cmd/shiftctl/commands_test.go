package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/internal/config"
	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/export"
	"github.com/arnavshah/shift-roster-api/pkg/models"
)

// day 8 is only staffed once the engine backtracks out of its greedy picks
const rosterFile = `{
	// eight day trial month
	"year": 2025, "month": 6, "days": 8, "weekdayOfDay1": 0,
	"shifts": [{"code": "A", "timeRange": "9:00-17:00"}],
	"requirements": [{"day": 1, "code": "A", "count": 0}, {"day": 5, "code": "A", "count": 0}],
	"people": [
		{"id": "a", "canWork": ["A"], "monthlyMin": 2, "monthlyMax": 3, "consecMax": 1},
		{"id": "b", "canWork": ["A"], "monthlyMin": 3, "monthlyMax": 3, "consecMax": 1},
	],
	"wishOffs": {"a": [8], "b": [5]},
}`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input_data.json")
	require.NoError(t, os.WriteFile(path, []byte(rosterFile), 0644))

	cfg := config.Default()
	cfg.InitialDataPath = path
	cfg.JWTSecret = "jwt-secret"
	cfg.APIMasterSecret = "master-secret"
	cli = &CLI{cfg: &cfg, logger: zap.NewNop(), ctx: context.Background()}
	t.Cleanup(func() { cli = nil })
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerate_JSONToStdout(t *testing.T) {
	setup(t)

	stdout, stderr, err := execute(t, generateCmd())
	require.NoError(t, err)
	assert.Empty(t, stderr)

	var resp models.GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.True(t, resp.Feasible)
	assert.Equal(t, []string{"b"}, resp.Shifts["8"]["A"])
	assert.Equal(t, []string{"a"}, resp.Shifts["2"]["A"])
}

func TestGenerate_IterationBudgetFlag(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(dir, "out.json")

	_, stderr, err := execute(t, generateCmd(), "-o", out, "--max-iterations", "1", "--time-budget", "1m")
	require.NoError(t, err)
	assert.Equal(t, "1 understaffed slots\n", stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var resp models.GenerateResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Feasible)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Summary.RepairExhausted)
	require.Len(t, resp.Shortages, 1)
	assert.Equal(t, 8, resp.Shortages[0].Date)
}

func TestGenerate_CSV(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(dir, "shifts.csv")

	_, _, err := execute(t, generateCmd(), "-i", cli.cfg.InitialDataPath, "-f", "csv", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, strings.Join(export.CSVHeader, ","), lines[0])
	assert.Equal(t, "2,月,A,9:00-17:00,a", lines[1])
	assert.Equal(t, "8,日,A,9:00-17:00,b", lines[6])
}

func TestGenerate_XLSX(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(dir, "shifts.xlsx")

	_, _, err := execute(t, generateCmd(), "--format", "xlsx", "--output", out)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.ScheduleSheet, export.ShortagesSheet}, f.GetSheetList())
	rows, err := f.GetRows(export.ScheduleSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "3", rows[1][len(rows[1])-1])
}

func TestGenerate_UnknownFormat(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(dir, "out.txt")

	_, _, err := execute(t, generateCmd(), "-f", "pdf", "-o", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "pdf"`)
	assert.NoFileExists(t, out)
}

func TestGenerate_MissingInput(t *testing.T) {
	dir := setup(t)

	_, _, err := execute(t, generateCmd(), "-i", filepath.Join(dir, "none.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, validateCmd())
	require.NoError(t, err)
	assert.Equal(t, "2025-06: 8 days, 2 staff, 1 shifts\n"+
		"warning: days is 8 but 2025-06 has 30 days\n", stdout)
}

func TestValidate_RejectsInvalidRoster(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"year": 2025, "month": 6, "days": 30, "people": []}`), 0644))

	_, _, err := execute(t, validateCmd(), "-i", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "people")
}

func TestKeygen(t *testing.T) {
	setup(t)

	stdout, _, err := execute(t, keygenCmd(), "ward-east")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Generated Key for ward-east:", lines[0])

	userID, err := auth.NewService("jwt-secret", "master-secret").VerifyHMACKey(lines[1])
	require.NoError(t, err)
	assert.Equal(t, "ward-east", userID)
}

func TestKeygen_NeedsMasterSecret(t *testing.T) {
	setup(t)
	cli.cfg.APIMasterSecret = ""

	_, _, err := execute(t, keygenCmd(), "ward-east")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_MASTER_SECRET")
}
