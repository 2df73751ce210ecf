package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

const (
	ResultsSheet    = "Results"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout      = "2006-01-02 15:04:05"
)

var ResultColumns = []string{
	"Rank",
	"Student Name",
	"Student ID",
	"Score (%)",
	"Points",
	"Status",
	"Start Time",
	"Submission Time",
	"Time Spent",
}

// WriteResults renders rows as a single-sheet workbook. Rows are written in
// the order given.
func WriteResults(w io.Writer, rows []*models.ResultRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(ResultColumns))
	for i, col := range ResultColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ResultColumns))
	if err := f.SetCellStyle(ResultsSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Rank,
			row.StudentName,
			row.TakerID,
			row.Percentage.StringFixed(2),
			fmt.Sprintf("%d/%d", row.EarnedPoints, row.TotalPoints),
			passLabel(row.Passed),
			row.StartedAt.UTC().Format(timeLayout),
			row.FinalizedAt.UTC().Format(timeLayout),
			FormatDuration(row.ElapsedSeconds),
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ResultsSheet, "B", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(ResultsSheet, "G", "H", 20); err != nil {
		return err
	}

	return f.Write(w)
}

// Filename builds a download name from the assessment id and export time.
func Filename(assessmentID uint, at time.Time) string {
	return fmt.Sprintf("assessment_%d_results_%s.xlsx", assessmentID, at.UTC().Format("20060102_150405"))
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func passLabel(passed bool) string {
	if passed {
		return "Passed"
	}
	return "Failed"
}
