package server

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/solarslot/solarslot/pkg/selector"
	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/tariff"
	"github.com/solarslot/solarslot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleSmartSchedule(t *testing.T) {
	ts := newTestServer(t)
	start := testNow.Add(time.Hour)
	ts.selector.res = types.SmartSchedule{
		CompositeCandidate: types.CompositeCandidate{
			Charger:    types.Charger{ID: "far", Name: "Far", CostPerKWH: 10},
			BestSlot:   types.SmartSlot{Start: start, End: start.Add(2 * time.Hour), Efficiency: 90},
			DistanceKM: 5,
			Score:      55,
		},
		NearestChargerID: "near",
		EstimatedCost:    200,
		Considered:       2,
	}

	rr := ts.do(t, http.MethodPost, "/api/smart-schedule", map[string]any{"lat": 12.97, "lng": 77.59, "energy_needed": 20})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, types.SmartScheduleRequest{Lat: 12.97, Lng: 77.59, EnergyNeededKWH: 20}, ts.selector.got)

	body := decode[map[string]any](t, rr)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 55.0, body["score"])
	assert.Equal(t, "near", body["nearest_charger_id"])
	assert.Equal(t, "far", body["charger"].(map[string]any)["id"])
	assert.Equal(t, 90.0, body["best_slot"].(map[string]any)["efficiency"])
	assert.NotEmpty(t, body["message"])
}

func TestHandleSmartScheduleErrors(t *testing.T) {
	t.Run("no option", func(t *testing.T) {
		ts := newTestServer(t)
		ts.selector.err = selector.ErrNoOption
		rr := ts.do(t, http.MethodPost, "/api/smart-schedule", map[string]any{"lat": 1, "lng": 1})
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, selector.ErrNoOption.Error(), decode[map[string]string](t, rr)["error"])
	})

	t.Run("failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.selector.err = errors.New("firestore down")
		rr := ts.do(t, http.MethodPost, "/api/smart-schedule", map[string]any{"lat": 1, "lng": 1})
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("invalid location", func(t *testing.T) {
		ts := newTestServer(t)
		rr := ts.do(t, http.MethodPost, "/api/smart-schedule", map[string]any{"lat": 100, "lng": 1})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleCurrencyRate(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		country string
		want    currencyRateResponse
	}{
		{"", currencyRateResponse{Currency: "₹", Rate: 1, Code: "INR"}},
		{"USA", currencyRateResponse{Currency: "$", Rate: 0.012, Code: "USD"}},
		{"Japan", currencyRateResponse{Currency: "¥", Rate: 1.76, Code: "JPY"}},
		{"Atlantis", currencyRateResponse{Currency: "₹", Rate: 1, Code: "INR"}},
	}
	for _, tt := range tests {
		rr := ts.do(t, http.MethodGet, "/api/currency-rate?country="+tt.country, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, tt.want, decode[currencyRateResponse](t, rr), tt.country)
	}
}

func TestHandleListCurrencies(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/api/currencies", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	entries := decode[[]currencyEntry](t, rr)
	require.Len(t, entries, len(ts.tariffs.Countries()))
	assert.Contains(t, entries, currencyEntry{Country: "India", Code: "INR", Symbol: "₹", Rate: 1})
	assert.Contains(t, entries, currencyEntry{Country: "Japan", Code: "JPY", Symbol: "¥", Rate: 1.76})
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Country, entries[i].Country)
	}
}

func TestHandleListTariffs(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/api/tariffs?country=Japan", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[tariffsResponse](t, rr)
	assert.Equal(t, "¥", body.Currency)
	assert.Equal(t, "JPY", body.Code)
	require.Len(t, body.Bands, len(tariff.DefaultBands()))
	for i, b := range tariff.DefaultBands() {
		assert.Equal(t, b.Tier, body.Bands[i].Tier)
		assert.Equal(t, b.BaseRate, body.Bands[i].BaseRate)
		assert.InDelta(t, b.BaseRate*1.76, body.Bands[i].Rate, 1e-9, b.Name)
	}

	rr = ts.do(t, http.MethodGet, "/api/tariffs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode[tariffsResponse](t, rr)
	assert.Equal(t, "INR", body.Code)
	assert.Equal(t, tariff.BaseRateSolar, body.Bands[0].Rate)
}

func TestHandleListChargers(t *testing.T) {
	ts := newTestServer(t)
	chargers := []types.Charger{{ID: "a", Status: types.ChargerStatusAvailable}}
	ts.db.On("ListChargers", mock.Anything, []types.ChargerStatus{types.ChargerStatusMaintenance}).Return(chargers, nil).Once()
	ts.db.On("ListChargers", mock.Anything, []types.ChargerStatus(nil)).Return(nil, nil).Once()

	rr := ts.do(t, http.MethodGet, "/api/chargers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, chargers, decode[[]types.Charger](t, rr))

	rr = ts.do(t, http.MethodGet, "/api/chargers?all=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
	ts.db.AssertExpectations(t)
}

func TestHandleListChargersError(t *testing.T) {
	ts := newTestServer(t)
	ts.db.On("ListChargers", mock.Anything, mock.Anything).Return(nil, errors.New("down"))
	rr := ts.do(t, http.MethodGet, "/api/chargers", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandleAddCharger(t *testing.T) {
	t.Run("open outside production", func(t *testing.T) {
		ts := newTestServer(t)
		ts.db.On("AddCharger", mock.Anything, mock.MatchedBy(func(c types.Charger) bool {
			return c.Name == "Depot" && c.CostPerKWH == 12 && c.Location.Lat == 12.9
		})).Return(types.Charger{ID: "new", Name: "Depot", CostPerKWH: 12, Status: types.ChargerStatusAvailable}, nil)

		rr := ts.do(t, http.MethodPost, "/api/chargers", map[string]any{
			"name":         " Depot ",
			"location":     map[string]float64{"lat": 12.9, "lng": 77.6},
			"cost_per_kwh": 12,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		body := decode[addChargerResponse](t, rr)
		assert.Equal(t, "new", body.Charger.ID)
		ts.db.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		ts := newTestServer(t)
		for _, body := range []map[string]any{
			{"name": "", "cost_per_kwh": 1},
			{"name": "x", "cost_per_kwh": 1},
			{"name": "x", "cost_per_kwh": -1},
			{"name": "x", "status": "Exploded"},
			{"name": "x", "location": map[string]float64{"lat": 91}},
		} {
			rr := ts.do(t, http.MethodPost, "/api/chargers", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		}
		ts.db.AssertNotCalled(t, "AddCharger", mock.Anything, mock.Anything)
	})

	t.Run("production without verifier", func(t *testing.T) {
		ts := newTestServer(t)
		ts.release = "production"
		rr := ts.do(t, http.MethodPost, "/api/chargers", map[string]any{"name": "x"})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing bearer", func(t *testing.T) {
		ts := newTestServer(t)
		ts.adminVerifier = func(ctx context.Context, raw string) (*oidc.IDToken, error) {
			t.Fatal("verifier should not be called")
			return nil, nil
		}
		rr := ts.do(t, http.MethodPost, "/api/chargers", map[string]any{"name": "x"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		ts := newTestServer(t)
		var gotToken string
		ts.adminVerifier = func(ctx context.Context, raw string) (*oidc.IDToken, error) {
			gotToken = raw
			return nil, errors.New("expired")
		}
		req := newRequest(t, http.MethodPost, "/api/chargers", map[string]any{"name": "x"})
		req.Header.Set("Authorization", "Bearer abc")
		rr := ts.serve(req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "abc", gotToken)
	})
}

func TestHandleBook(t *testing.T) {
	start := testNow.Add(time.Hour)
	end := start.Add(2 * time.Hour)
	payload := map[string]any{
		"user_id":    42,
		"charger_id": "c1",
		"start_time": start.Format(time.RFC3339),
		"end_time":   end.Format(time.RFC3339),
		"energy_kwh": 14,
		"total_cost": 140,
	}

	t.Run("created", func(t *testing.T) {
		ts := newTestServer(t)
		ts.db.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b types.Booking) bool {
			return b.UserID == "42" && b.ChargerID == "c1" && b.Start.Equal(start) && b.End.Equal(end) && b.TotalCost == 140
		})).Return(types.Booking{ID: "b1", UserID: "42", ChargerID: "c1", Start: start, End: end, Status: types.BookingStatusConfirmed}, nil)

		rr := ts.do(t, http.MethodPost, "/api/book", payload)
		require.Equal(t, http.StatusCreated, rr.Code)
		body := decode[bookingResponse](t, rr)
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "b1", body.Booking.ID)
		assert.Contains(t, ts.do(t, http.MethodGet, "/metrics", nil).Body.String(), `solarslot_bookings_total{result="created"} 1`)
	})

	errs := []struct {
		err  error
		code int
	}{
		{storage.ErrBookingConflict, http.StatusConflict},
		{storage.ErrChargerNotFound, http.StatusNotFound},
		{storage.ErrChargerUnavailable, http.StatusConflict},
		{errors.New("down"), http.StatusInternalServerError},
	}
	for _, tt := range errs {
		t.Run(tt.err.Error(), func(t *testing.T) {
			ts := newTestServer(t)
			ts.db.On("CreateBooking", mock.Anything, mock.Anything).Return(types.Booking{}, tt.err)
			rr := ts.do(t, http.MethodPost, "/api/book", payload)
			assert.Equal(t, tt.code, rr.Code)
		})
	}

	t.Run("conflict message", func(t *testing.T) {
		ts := newTestServer(t)
		ts.db.On("CreateBooking", mock.Anything, mock.Anything).Return(types.Booking{}, storage.ErrBookingConflict)
		rr := ts.do(t, http.MethodPost, "/api/book", payload)
		assert.Equal(t, "this time slot is already occupied", decode[map[string]string](t, rr)["error"])
	})

	t.Run("validation", func(t *testing.T) {
		ts := newTestServer(t)
		for _, mutate := range []func(map[string]any){
			func(m map[string]any) { delete(m, "user_id") },
			func(m map[string]any) { delete(m, "charger_id") },
			func(m map[string]any) { m["end_time"] = m["start_time"] },
			func(m map[string]any) { m["total_cost"] = -1 },
			func(m map[string]any) { m["user_id"] = true },
		} {
			body := map[string]any{}
			for k, v := range payload {
				body[k] = v
			}
			mutate(body)
			rr := ts.do(t, http.MethodPost, "/api/book", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		}
		ts.db.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})
}

func TestHandleCancelBooking(t *testing.T) {
	ts := newTestServer(t)
	ts.db.On("CancelBooking", mock.Anything, "b1", "u1").Return(nil)
	ts.db.On("CancelBooking", mock.Anything, "7", "").Return(storage.ErrBookingNotFound)

	rr := ts.do(t, http.MethodPost, "/api/cancel-booking", map[string]any{"booking_id": "b1", "user_id": "u1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, statusResponse{Status: "success", Message: "Booking cancelled successfully"}, decode[statusResponse](t, rr))

	rr = ts.do(t, http.MethodPost, "/api/cancel-booking", map[string]any{"booking_id": 7})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/cancel-booking", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	ts.db.AssertExpectations(t)
}

func TestHandleListBookings(t *testing.T) {
	ts := newTestServer(t)
	bookings := []types.Booking{{ID: "b1", UserID: "u1", ChargerID: "c1"}}
	ts.db.On("ListUserBookings", mock.Anything, "u1", testNow, storage.DefaultBookingsLimit).Return(bookings, nil)
	ts.db.On("ListUserBookings", mock.Anything, "u2", testNow, 2).Return(nil, nil)

	rr := ts.do(t, http.MethodGet, "/api/bookings?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, bookings[0].ID, decode[bookingsResponse](t, rr).Bookings[0].ID)

	rr = ts.do(t, http.MethodGet, "/api/bookings?user_id=u2&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"bookings":[]}`, rr.Body.String())

	for _, q := range []string{"", "user_id=u1&limit=0", "user_id=u1&limit=x"} {
		rr = ts.do(t, http.MethodGet, "/api/bookings?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
	ts.db.AssertExpectations(t)
}

func TestHandleClearHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.db.On("ClearHistory", mock.Anything, "42").Return(3, nil)
	ts.db.On("ClearHistory", mock.Anything, "u9").Return(0, errors.New("down"))

	rr := ts.do(t, http.MethodPost, "/api/clear-history", map[string]any{"user_id": 42})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Cleared 3 past bookings", decode[statusResponse](t, rr).Message)

	rr = ts.do(t, http.MethodPost, "/api/clear-history", map[string]any{"user_id": "u9"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/clear-history", map[string]any{"user_id": nil})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
