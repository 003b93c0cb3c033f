// Package export renders a day's schedule for the back office: an Excel
// workbook for download and a Google Sheets push for the shared planning
// document.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"velora/internal/models"
)

var dayScheduleColumns = []string{
	"Lane", "Start", "End", "Type", "Service", "Status", "Payment", "Price", "Notes",
}

// DaySchedule holds everything a day export needs.
type DaySchedule struct {
	Date     string
	Lanes    []models.Lane
	Bookings []models.Booking
	Blocks   []models.LaneBlock
	Services map[int64]models.Service
}

// WriteWorkbook renders the schedule as an xlsx workbook, one sheet, lanes
// grouped in position order.
func WriteWorkbook(w io.Writer, s DaySchedule) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.Date
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f.SetSheetName("Sheet1", sheet)

	row := 1
	if err := writeRow(f, sheet, row, headerValues()); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(dayScheduleColumns), row)
		_ = f.SetCellStyle(sheet, start, end, style)
	}
	row++

	s.Bookings = filterActive(s.Bookings)
	for i := range s.Lanes {
		lane := &s.Lanes[i]
		for _, values := range laneRows(lane, s) {
			if err := writeRow(f, sheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func headerValues() []any {
	values := make([]any, len(dayScheduleColumns))
	for i, c := range dayScheduleColumns {
		values[i] = c
	}
	return values
}

// laneRows flattens one lane's bookings and blocks into export rows. The
// caller filters cancelled bookings first.
func laneRows(lane *models.Lane, s DaySchedule) [][]any {
	var rows [][]any
	for i := range s.Bookings {
		b := &s.Bookings[i]
		if b.LaneID == nil || *b.LaneID != lane.ID {
			continue
		}
		rows = append(rows, bookingRowValues(lane, b, s.Services))
	}
	for i := range s.Blocks {
		bl := &s.Blocks[i]
		if bl.LaneID != lane.ID {
			continue
		}
		rows = append(rows, blockRowValues(lane, bl))
	}
	return rows
}

func bookingRowValues(lane *models.Lane, b *models.Booking, services map[int64]models.Service) []any {
	serviceName := ""
	if svc, ok := services[b.ServiceID]; ok {
		serviceName = svc.Name
	}
	return []any{
		lane.Name,
		b.StartTime.Format("15:04"),
		b.EndTime().Format("15:04"),
		"booking",
		serviceName,
		b.Status,
		b.PaymentStatus,
		fmt.Sprintf("%.2f", float64(b.PriceCents)/100),
		b.Notes,
	}
}

func blockRowValues(lane *models.Lane, bl *models.LaneBlock) []any {
	return []any{
		lane.Name,
		bl.StartTime.Format("15:04"),
		bl.EndTime.Format("15:04"),
		"block",
		"",
		"",
		"",
		"",
		bl.Reason,
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
