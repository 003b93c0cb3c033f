// Package api exposes the scheduling engine over HTTP: availability and
// day-schedule reads, booking and block mutations, the charge flows, and
// operational endpoints (health, readiness, metrics).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"velora/internal/engine"
	"velora/internal/errs"
	"velora/internal/lifecycle"
	"velora/internal/models"
)

// Scheduler is the engine surface the handlers call.
type Scheduler interface {
	CreateBooking(ctx context.Context, in engine.CreateBookingInput) (*engine.CreateResult, error)
	MoveBooking(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	CreateBlock(ctx context.Context, in engine.CreateBlockInput) (*models.LaneBlock, error)
	MoveBlock(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.LaneBlock, error)
	DeleteBlock(ctx context.Context, id int64) error
}

// Charger is the lifecycle surface: charge flows and booking state edits.
type Charger interface {
	EditBooking(ctx context.Context, b models.Booking, edit lifecycle.Edit, unlockConfirms int) (*models.Booking, error)
	AttemptCharge(ctx context.Context, b models.Booking) (*models.Booking, error)
	RecordManualSettlement(ctx context.Context, b models.Booking, instrument string) (*models.Booking, error)
	SendPaymentLink(ctx context.Context, b models.Booking, email string) (string, error)
	CaptureNoShowPenalty(ctx context.Context, b models.Booking, percent int, overrideCents int64) (*models.Booking, int64, error)
}

// Records is the read side of the record store.
type Records interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, centerID int64, day time.Time) ([]models.Booking, error)
	ListBlocks(ctx context.Context, centerID int64, day time.Time) ([]models.LaneBlock, error)
	ListLanes(ctx context.Context, centerID int64) ([]models.Lane, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	Ping(ctx context.Context) error
}

// Pinger is an optional extra readiness dependency (redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	records   Records
	scheduler Scheduler
	charger   Charger
	bus       Pinger
	logger    *zerolog.Logger
}

// NewServer creates the HTTP server. bus may be nil.
func NewServer(records Records, scheduler Scheduler, charger Charger, bus Pinger, logger *zerolog.Logger) *Server {
	return &Server{
		records:   records,
		scheduler: scheduler,
		charger:   charger,
		bus:       bus,
		logger:    logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/availability", s.handleAvailability).Methods(http.MethodGet)
	api.HandleFunc("/schedule", s.handleSchedule).Methods(http.MethodGet)
	api.HandleFunc("/schedule.xlsx", s.handleScheduleExport).Methods(http.MethodGet)

	api.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}/move", s.handleMoveBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}", s.handleEditBooking).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id:[0-9]+}", s.handleDeleteBooking).Methods(http.MethodDelete)
	api.HandleFunc("/bookings/{id:[0-9]+}/charge", s.handleCharge).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}/settle", s.handleManualSettle).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}/payment-link", s.handlePaymentLink).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id:[0-9]+}/penalty", s.handlePenalty).Methods(http.MethodPost)

	api.HandleFunc("/blocks", s.handleCreateBlock).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id:[0-9]+}/move", s.handleMoveBlock).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id:[0-9]+}", s.handleDeleteBlock).Methods(http.MethodDelete)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.records.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if s.bus != nil {
		if err := s.bus.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "event bus unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errs.IsConflict(err, ""):
		writeError(w, http.StatusConflict, err.Error())
	case errs.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errs.IsRetryable(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

var errMissingParam = errors.New("missing query parameter")
