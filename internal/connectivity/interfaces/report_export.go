package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	connectivity "binwatch-cloud/internal/connectivity/domain"
)

// BuildHealthReportPDF renders a fleet connection health report.
func BuildHealthReportPDF(healths []connectivity.UnitHealth, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fleet Connection Health")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Units: %d", len(healths)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "State", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Last Seen", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Checked", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, health := range healths {
		pdf.CellFormat(45, 6, health.UnitID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, string(health.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", health.Score), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, formatReportTime(health.LastSeen), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, formatReportTime(health.CheckedAt), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHealthReportXLSX renders the same report as a spreadsheet.
func BuildHealthReportXLSX(healths []connectivity.UnitHealth, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "health"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Fleet Connection Health")
	_ = f.SetCellValue(sheet, "A2", "Generated")
	_ = f.SetCellValue(sheet, "B2", generatedAt.Format(time.RFC3339))

	headers := []string{"Unit", "State", "Score", "Low Streak", "Last Seen", "Checked"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for row, health := range healths {
		values := []any{
			health.UnitID,
			string(health.Status),
			health.Score,
			health.LowStreak,
			formatReportTime(health.LastSeen),
			formatReportTime(health.CheckedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+5)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
