package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"velora/internal/engine"
	"velora/internal/lifecycle"
	"velora/internal/metrics"
	"velora/internal/models"
)

// CreateBookingRequest is the POST /bookings body.
type CreateBookingRequest struct {
	CenterID     int64      `json:"center_id"`
	LaneID       *int64     `json:"lane_id,omitempty"`
	ServiceID    int64      `json:"service_id"`
	Start        time.Time  `json:"start"`
	Client       *ClientRef `json:"client,omitempty"`
	WalkIn       bool       `json:"walk_in"`
	SaveAsClient bool       `json:"save_as_client"`
	Notes        string     `json:"notes,omitempty"`
	VoucherCode  string     `json:"voucher_code,omitempty"`
}

// ClientRef carries the client details of a booking request.
type ClientRef struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// MoveRequest is the body shared by booking and block moves.
type MoveRequest struct {
	CenterID int64     `json:"center_id"`
	LaneID   int64     `json:"lane_id"`
	Start    time.Time `json:"start"`
}

// CreateBlockRequest is the POST /blocks body.
type CreateBlockRequest struct {
	CenterID  int64     `json:"center_id"`
	LaneID    int64     `json:"lane_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
}

// EditBookingRequest is the PATCH /bookings/{id} body. Omitted fields are
// left untouched. unlock_confirmations is the operator's manual-payment
// unlock sequence: payment_status edits need two.
type EditBookingRequest struct {
	Status              *string `json:"status,omitempty"`
	PaymentStatus       *string `json:"payment_status,omitempty"`
	UnlockConfirmations int     `json:"unlock_confirmations,omitempty"`
}

// PenaltyRequest is the POST /bookings/{id}/penalty body.
type PenaltyRequest struct {
	Percent       int   `json:"percent"`
	OverrideCents int64 `json:"override_cents,omitempty"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req CreateBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := engine.CreateBookingInput{
		View:         viewFor(req.CenterID, req.Start),
		CenterID:     req.CenterID,
		LaneID:       req.LaneID,
		ServiceID:    req.ServiceID,
		Start:        req.Start,
		WalkIn:       req.WalkIn,
		SaveAsClient: req.SaveAsClient,
		Notes:        req.Notes,
		VoucherCode:  req.VoucherCode,
	}
	if req.Client != nil {
		in.Client = &engine.ClientInfo{
			FirstName: req.Client.FirstName,
			LastName:  req.Client.LastName,
			Email:     req.Client.Email,
			Phone:     req.Client.Phone,
		}
	}

	res, err := s.scheduler.CreateBooking(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{"booking": res.Booking}
	if res.VoucherErr != nil {
		body["voucher_error"] = res.VoucherErr.Error()
	}
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleMoveBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("move_booking")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	moved, err := s.scheduler.MoveBooking(r.Context(), viewFor(req.CenterID, req.Start), id, req.CenterID, req.LaneID, req.Start)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": moved})
}

func (s *Server) handleEditBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("edit_booking")

	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	var req EditBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == nil && req.PaymentStatus == nil {
		writeError(w, http.StatusBadRequest, "nothing to edit")
		return
	}

	edit := lifecycle.Edit{Status: req.Status, PaymentStatus: req.PaymentStatus}
	updated, err := s.charger.EditBooking(r.Context(), *booking, edit, req.UnlockConfirmations)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": updated})
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_booking")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.scheduler.DeleteBooking(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_block")

	var req CreateBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	block, err := s.scheduler.CreateBlock(r.Context(), engine.CreateBlockInput{
		View:      viewFor(req.CenterID, req.Start),
		CenterID:  req.CenterID,
		LaneID:    req.LaneID,
		Start:     req.Start,
		End:       req.End,
		Reason:    req.Reason,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"block": block})
}

func (s *Server) handleMoveBlock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("move_block")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	moved, err := s.scheduler.MoveBlock(r.Context(), viewFor(req.CenterID, req.Start), id, req.CenterID, req.LaneID, req.Start)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"block": moved})
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_block")

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.scheduler.DeleteBlock(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("charge")

	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	charged, err := s.charger.AttemptCharge(r.Context(), *booking)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": charged})
}

func (s *Server) handleManualSettle(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("manual_settle")

	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	var req struct {
		Instrument string `json:"instrument"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	settled, err := s.charger.RecordManualSettlement(r.Context(), *booking, req.Instrument)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": settled})
}

func (s *Server) handlePaymentLink(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_link")

	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	url, err := s.charger.SendPaymentLink(r.Context(), *booking, req.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handlePenalty(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("penalty")

	booking, ok := s.loadBooking(w, r)
	if !ok {
		return
	}
	var req PenaltyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	charged, amount, err := s.charger.CaptureNoShowPenalty(r.Context(), *booking, req.Percent, req.OverrideCents)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": charged, "amount_cents": amount})
}

func (s *Server) loadBooking(w http.ResponseWriter, r *http.Request) (*models.Booking, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	booking, err := s.records.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if booking == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("booking %d not found", id))
		return nil, false
	}
	return booking, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", errMissingParam, name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func viewFor(centerID int64, start time.Time) models.ViewContext {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return models.ViewContext{CenterID: centerID, Date: day}
}
