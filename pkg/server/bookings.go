package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/types"
)

// flexibleID accepts either a JSON string or number.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

type bookRequest struct {
	UserID    flexibleID `json:"user_id"`
	ChargerID flexibleID `json:"charger_id"`
	Start     time.Time  `json:"start_time"`
	End       time.Time  `json:"end_time"`
	EnergyKWH float64    `json:"energy_kwh"`
	TotalCost float64    `json:"total_cost"`
}

type bookingResponse struct {
	Status  string        `json:"status"`
	Booking types.Booking `json:"booking"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode booking request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch {
	case req.UserID == "":
		writeJSONError(w, "user_id is required", http.StatusBadRequest)
		return
	case req.ChargerID == "":
		writeJSONError(w, "charger_id is required", http.StatusBadRequest)
		return
	case !req.End.After(req.Start):
		writeJSONError(w, "end_time must be after start_time", http.StatusBadRequest)
		return
	case req.EnergyKWH < 0 || req.TotalCost < 0 || math.IsNaN(req.EnergyKWH) || math.IsNaN(req.TotalCost):
		writeJSONError(w, "energy_kwh and total_cost must be non-negative", http.StatusBadRequest)
		return
	}

	booking, err := s.storage.CreateBooking(ctx, types.Booking{
		UserID:    string(req.UserID),
		ChargerID: string(req.ChargerID),
		Start:     req.Start,
		End:       req.End,
		EnergyKWH: req.EnergyKWH,
		TotalCost: req.TotalCost,
	})
	switch {
	case errors.Is(err, storage.ErrBookingConflict):
		s.metrics.Booking("conflict")
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, storage.ErrChargerNotFound):
		s.metrics.Booking("not_found")
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrChargerUnavailable):
		s.metrics.Booking("unavailable")
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.metrics.Booking("error")
		log.Ctx(ctx).ErrorContext(ctx, "failed to create booking", slog.Any("error", err))
		writeJSONError(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	s.metrics.Booking("created")
	log.Ctx(ctx).InfoContext(
		ctx,
		"booking created",
		slog.String("bookingID", booking.ID),
		slog.String("chargerID", booking.ChargerID),
		slog.Time("start", booking.Start),
		slog.Time("end", booking.End),
	)
	writeJSON(w, http.StatusCreated, bookingResponse{Status: "success", Booking: booking})
}

type cancelBookingRequest struct {
	BookingID flexibleID `json:"booking_id"`
	UserID    flexibleID `json:"user_id"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelBookingRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode cancel request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BookingID == "" {
		writeJSONError(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	err := s.storage.CancelBooking(ctx, string(req.BookingID), string(req.UserID))
	if errors.Is(err, storage.ErrBookingNotFound) {
		writeJSONError(w, "booking not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to cancel booking", slog.String("bookingID", string(req.BookingID)), slog.Any("error", err))
		writeJSONError(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Booking cancelled successfully"})
}

type bookingsResponse struct {
	Bookings []types.Booking `json:"bookings"`
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		writeJSONError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit := storage.DefaultBookingsLimit
	if v := q.Get("limit"); v != "" {
		var err error
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	bookings, err := s.storage.ListUserBookings(ctx, userID, s.now(), limit)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list bookings", slog.Any("error", err))
		writeJSONError(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if bookings == nil {
		bookings = []types.Booking{}
	}
	writeJSON(w, http.StatusOK, bookingsResponse{Bookings: bookings})
}

type clearHistoryRequest struct {
	UserID flexibleID `json:"user_id"`
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req clearHistoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode clear history request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeJSONError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	n, err := s.storage.ClearHistory(ctx, string(req.UserID))
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to clear history", slog.String("userID", string(req.UserID)), slog.Any("error", err))
		writeJSONError(w, "failed to clear history", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "cleared booking history", slog.String("userID", string(req.UserID)), slog.Int("count", n))
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: fmt.Sprintf("Cleared %d past bookings", n)})
}
