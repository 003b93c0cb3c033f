package export

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"velora/internal/models"
)

// SheetsService pushes the day schedule to a shared Google Sheets planning
// document. Authentication is a service-account JWT read from a credentials
// file.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger
}

// NewSheetsService builds a client from service-account credentials.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsService{srv: srv, spreadsheetID: spreadsheetID, logger: logger}, nil
}

// PushDay replaces the schedule range of the spreadsheet with the day's
// rows. Errors are returned for the caller to log; a failed push never
// touches booking state.
func (s *SheetsService) PushDay(ctx context.Context, ds DaySchedule) error {
	ds.Bookings = filterActive(ds.Bookings)
	values := [][]any{headerValues()}
	for i := range ds.Lanes {
		values = append(values, laneRows(&ds.Lanes[i], ds)...)
	}

	rangeName := fmt.Sprintf("%s!A1", ds.Date)
	_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rangeName, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("push day %s: %w", ds.Date, err)
	}

	s.logger.Info().Str("date", ds.Date).Int("rows", len(values)-1).Msg("day schedule pushed to sheets")
	return nil
}

// filterActive drops cancelled bookings before exporting.
func filterActive(bookings []models.Booking) []models.Booking {
	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status != models.StatusCancelled {
			active = append(active, b)
		}
	}
	return active
}
