package api

import (
	"fmt"
	"net/http"
	"time"

	"velora/internal/export"
	"velora/internal/metrics"
	"velora/internal/models"
	"velora/internal/occupancy"
)

// AvailabilityResponse is the aggregate for one instant of a center's day.
type AvailabilityResponse struct {
	CenterID int64                  `json:"center_id"`
	Date     string                 `json:"date"`
	Time     string                 `json:"time"`
	Summary  occupancy.Availability `json:"summary"`
}

// ScheduleResponse is the full day view of a center.
type ScheduleResponse struct {
	CenterID int64              `json:"center_id"`
	Date     string             `json:"date"`
	Lanes    []models.Lane      `json:"lanes"`
	Bookings []models.Booking   `json:"bookings"`
	Blocks   []models.LaneBlock `json:"blocks"`
	Services []models.Service   `json:"services"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	centerID, day, err := centerAndDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clock := r.URL.Query().Get("time")
	if clock == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter: time")
		return
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "time must be HH:MM")
		return
	}
	instant := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())

	calc, err := s.dayCalculator(r, centerID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	view := models.ViewContext{CenterID: centerID, Date: day}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		CenterID: centerID,
		Date:     day.Format("2006-01-02"),
		Time:     clock,
		Summary:  calc.Availability(view, instant),
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule")

	centerID, day, err := centerAndDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lanes, bookings, blocks, services, err := s.dayRecords(r, centerID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		CenterID: centerID,
		Date:     day.Format("2006-01-02"),
		Lanes:    lanes,
		Bookings: bookings,
		Blocks:   blocks,
		Services: services,
	})
}

func (s *Server) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_export")

	centerID, day, err := centerAndDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lanes, bookings, blocks, services, err := s.dayRecords(r, centerID, day)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	svcByID := make(map[int64]models.Service, len(services))
	for _, svc := range services {
		svcByID[svc.ID] = svc
	}
	schedule := export.DaySchedule{
		Date:     day.Format("2006-01-02"),
		Lanes:    lanes,
		Bookings: bookings,
		Blocks:   blocks,
		Services: svcByID,
	}

	name := fmt.Sprintf("schedule-%d-%s.xlsx", centerID, schedule.Date)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteWorkbook(w, schedule); err != nil {
		s.logger.Error().Err(err).Msg("schedule export failed")
	}
}

func (s *Server) dayRecords(r *http.Request, centerID int64, day time.Time) ([]models.Lane, []models.Booking, []models.LaneBlock, []models.Service, error) {
	ctx := r.Context()

	lanes, err := s.records.ListLanes(ctx, centerID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	bookings, err := s.records.ListBookings(ctx, centerID, day)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	blocks, err := s.records.ListBlocks(ctx, centerID, day)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	services, err := s.records.ListServices(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return lanes, bookings, blocks, services, nil
}

func (s *Server) dayCalculator(r *http.Request, centerID int64, day time.Time) (*occupancy.Calculator, error) {
	lanes, bookings, blocks, services, err := s.dayRecords(r, centerID, day)
	if err != nil {
		return nil, err
	}
	return occupancy.NewCalculator(lanes, bookings, blocks, services, s.logger), nil
}

func centerAndDate(r *http.Request) (int64, time.Time, error) {
	centerID, err := queryInt64(r, "center_id")
	if err != nil {
		return 0, time.Time{}, err
	}
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return 0, time.Time{}, fmt.Errorf("%w: date", errMissingParam)
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return centerID, day, nil
}
