// Package export renders an assignment table as CSV or as an XLSX workbook.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/shift-roster-api/pkg/calendar"
	"github.com/arnavshah/shift-roster-api/pkg/scheduler"
)

const (
	ScheduleSheet  = "Schedule"
	ShortagesSheet = "Shortages"

	// OffMark marks a requested or fixed day off in the schedule grid
	OffMark = "休"
)

// CSVHeader is the first row written by CSV
var CSVHeader = []string{"day", "weekday", "shift_code", "time_range", "staff_id"}

// CSV writes one row per assignment, ordered by day, shift declaration order
// and assignment order.
func CSV(w io.Writer, p *scheduler.Problem, table scheduler.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return err
	}
	for _, d := range p.Calendar.Days {
		for _, sh := range p.Shifts {
			for _, id := range table.Assigned(d.Number, sh.Code) {
				if err := writer.Write([]string{
					strconv.Itoa(d.Number),
					calendar.Label(d.Weekday),
					sh.Code,
					sh.DisplayLabel(),
					id,
				}); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// XLSX builds a workbook with a staff by day grid and a shortage list
func XLSX(p *scheduler.Problem, table scheduler.Table, shortages []scheduler.Shortage) ([]byte, error) {
	f := excelize.NewFile()

	if _, err := f.NewSheet(ScheduleSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(ShortagesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	// indexes shift once Sheet1 is gone
	index, err := f.GetSheetIndex(ScheduleSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to find sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSchedule(f, p, table, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeShortages(f, shortages, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSchedule lays out one row per staff member and one column per day.
// A cell holds the shift code worked, OffMark on a day off, or nothing.
func writeSchedule(f *excelize.File, p *scheduler.Problem, table scheduler.Table, headerStyle int) error {
	headers := []any{"Staff"}
	for _, d := range p.Calendar.Days {
		headers = append(headers, fmt.Sprintf("%d(%s)", d.Number, calendar.Label(d.Weekday)))
	}
	headers = append(headers, "Days")
	if err := writeRow(f, ScheduleSheet, 1, headers, headerStyle); err != nil {
		return err
	}

	worked := table.DaysWorked()
	for i, st := range p.Staff {
		row := []any{st.ID}
		for _, d := range p.Calendar.Days {
			row = append(row, cellFor(p, table, st.ID, d.Number))
		}
		row = append(row, worked[st.ID])
		if err := writeRow(f, ScheduleSheet, i+2, row, 0); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetColWidth(ScheduleSheet, "A", "A", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if len(headers) > 2 {
		if err := f.SetColWidth(ScheduleSheet, "B", last, 7); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.SetPanes(ScheduleSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func cellFor(p *scheduler.Problem, table scheduler.Table, staffID string, day int) string {
	for _, sh := range p.Shifts {
		for _, id := range table.Assigned(day, sh.Code) {
			if id == staffID {
				return sh.Code
			}
		}
	}
	if p.DaysOff.Off(staffID, day) {
		return OffMark
	}
	return ""
}

func writeShortages(f *excelize.File, shortages []scheduler.Shortage, headerStyle int) error {
	headers := []any{"Date", "Shift", "Time Range", "Required", "Assigned", "Shortage", "Reasons"}
	if err := writeRow(f, ShortagesSheet, 1, headers, headerStyle); err != nil {
		return err
	}
	for i, s := range shortages {
		row := []any{s.Day, s.Code, s.Label, s.Required, s.Assigned, s.Count, strings.Join(s.Reasons, "; ")}
		if err := writeRow(f, ShortagesSheet, i+2, row, 0); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ShortagesSheet, "C", "C", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(ShortagesSheet, "G", "G", 48); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

// writeRow writes values from column A. A zero style leaves cells unstyled.
func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("failed to set style of %s: %w", cell, err)
			}
		}
	}
	return nil
}
