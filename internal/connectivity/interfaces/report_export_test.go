package interfaces

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	connectivity "binwatch-cloud/internal/connectivity/domain"
)

func reportHealths() []connectivity.UnitHealth {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []connectivity.UnitHealth{
		{UnitID: "unit-1", Status: connectivity.StatusOnline, Score: 90, LastSeen: at, CheckedAt: at},
		{UnitID: "unit-2", Status: connectivity.StatusOffline, Score: 10, LowStreak: 3, LastSeen: at.Add(-time.Hour), CheckedAt: at},
	}
}

func TestBuildHealthReportPDF(t *testing.T) {
	data, err := BuildHealthReportPDF(reportHealths(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected a pdf document")
	}
}

func TestBuildHealthReportXLSX(t *testing.T) {
	data, err := BuildHealthReportXLSX(reportHealths(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	unit, err := f.GetCellValue("health", "A5")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if unit != "unit-1" {
		t.Fatalf("expected unit-1 in first data row, got %q", unit)
	}
	state, err := f.GetCellValue("health", "B6")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if state != string(connectivity.StatusOffline) {
		t.Fatalf("expected offline state, got %q", state)
	}
}

func TestBuildHealthReportsHandleEmptyFleet(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if _, err := BuildHealthReportPDF(nil, now); err != nil {
		t.Fatalf("empty pdf: %v", err)
	}
	if _, err := BuildHealthReportXLSX(nil, now); err != nil {
		t.Fatalf("empty xlsx: %v", err)
	}
}
