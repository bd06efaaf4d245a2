package server

import (
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/types"
)

func (s *Server) handleListChargers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var exclude []types.ChargerStatus
	if r.URL.Query().Get("all") != "true" {
		exclude = append(exclude, types.ChargerStatusMaintenance)
	}
	chargers, err := s.storage.ListChargers(ctx, exclude...)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list chargers", slog.Any("error", err))
		writeJSONError(w, "failed to list chargers", http.StatusInternalServerError)
		return
	}

	// Always return an array, even if empty
	if chargers == nil {
		chargers = []types.Charger{}
	}
	writeJSON(w, http.StatusOK, chargers)
}

// requireAdmin checks the bearer token against the admin verifier and email
// allow list. It writes the error response and returns false on failure.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	if s.adminVerifier == nil {
		// without a verifier only non-production releases are open
		if s.release == "production" {
			log.Ctx(ctx).WarnContext(ctx, "admin request rejected, no verifier configured")
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return false
		}
		return true
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	idToken, err := s.adminVerifier(ctx, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "admin token validation failed", slog.Any("error", err))
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to parse admin token claims", slog.Any("error", err))
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	if len(s.adminEmails) > 0 && (!claims.EmailVerified || !slices.Contains(s.adminEmails, claims.Email)) {
		log.Ctx(ctx).WarnContext(ctx, "unauthorized admin access", slog.String("email", claims.Email))
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

type addChargerResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Charger types.Charger `json:"charger"`
}

func (s *Server) handleAddCharger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.requireAdmin(w, r) {
		return
	}

	var c types.Charger
	if err := decodeBody(w, r, &c); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode charger", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if c.CostPerKWH < 0 || math.IsNaN(c.CostPerKWH) {
		writeJSONError(w, "cost_per_kwh must be non-negative", http.StatusBadRequest)
		return
	}
	if c.Location.IsZero() {
		writeJSONError(w, "location is required", http.StatusBadRequest)
		return
	}
	if math.Abs(c.Location.Lat) > 90 || math.Abs(c.Location.Lng) > 180 {
		writeJSONError(w, "invalid location", http.StatusBadRequest)
		return
	}
	switch c.Status {
	case "", types.ChargerStatusAvailable, types.ChargerStatusBusy, types.ChargerStatusMaintenance:
	default:
		writeJSONError(w, "invalid status", http.StatusBadRequest)
		return
	}

	added, err := s.storage.AddCharger(ctx, c)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to add charger", slog.Any("error", err))
		writeJSONError(w, "failed to add charger", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "charger added", slog.String("chargerID", added.ID), slog.String("name", added.Name))
	writeJSON(w, http.StatusCreated, addChargerResponse{
		Status:  "success",
		Message: "Charger added successfully",
		Charger: added,
	})
}
