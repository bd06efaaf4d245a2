package server

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/selector"
	"github.com/solarslot/solarslot/pkg/tariff"
	"github.com/solarslot/solarslot/pkg/types"
)

const (
	defaultHoursAhead = 12
	// maxHoursAhead bounds the forecast a single request can ask for.
	maxHoursAhead = 30 * 24
)

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.ChargeRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode optimize request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res := s.scheduler.Schedule(ctx, req)
	if res.Error != "" {
		log.Ctx(ctx).WarnContext(ctx, "schedule failed", slog.String("error", res.Error))
	} else {
		log.Ctx(ctx).InfoContext(ctx, "schedule computed", slog.Int("slots", len(res.Slots)), slog.String("priority", string(req.Priority)))
	}
	writeJSON(w, http.StatusOK, res)
}

type solarForecastResponse struct {
	Status   string                `json:"status"`
	Location types.Location        `json:"location"`
	Forecast []types.ForecastPoint `json:"forecast"`
}

func (s *Server) handleSolarForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	hours := defaultHoursAhead
	if v := q.Get("hours_ahead"); v != "" {
		var err error
		hours, err = strconv.Atoi(v)
		if err != nil || hours < 0 || hours > maxHoursAhead {
			writeJSONError(w, fmt.Sprintf("hours_ahead must be an integer between 0 and %d", maxHoursAhead), http.StatusBadRequest)
			return
		}
	}
	lat, err := floatParam(q.Get("lat"), types.DefaultLocation.Lat)
	if err != nil || math.Abs(lat) > 90 {
		writeJSONError(w, "invalid lat", http.StatusBadRequest)
		return
	}
	lng, err := floatParam(q.Get("lng"), types.DefaultLocation.Lng)
	if err != nil || math.Abs(lng) > 180 {
		writeJSONError(w, "invalid lng", http.StatusBadRequest)
		return
	}

	points := s.forecaster.Forecast(ctx, lat, lng, hours)
	if points == nil {
		points = []types.ForecastPoint{}
	}
	writeJSON(w, http.StatusOK, solarForecastResponse{
		Status:   "success",
		Location: types.Location{Lat: lat, Lng: lng},
		Forecast: points,
	})
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

type smartScheduleResponse struct {
	Status string `json:"status"`
	types.SmartSchedule
	Message string `json:"message"`
}

func (s *Server) handleSmartSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.SmartScheduleRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode smart schedule request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if math.Abs(req.Lat) > 90 || math.Abs(req.Lng) > 180 {
		writeJSONError(w, "invalid location", http.StatusBadRequest)
		return
	}

	res, err := s.selector.Select(ctx, req)
	if errors.Is(err, selector.ErrNoOption) {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to select charger", slog.Any("error", err))
		writeJSONError(w, "failed to find a charging option", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, smartScheduleResponse{
		Status:        "success",
		SmartSchedule: res,
		Message:       "Found most cost-efficient and solar-friendly charging option",
	})
}

type currencyRateResponse struct {
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
	Code     string  `json:"code"`
}

func (s *Server) handleCurrencyRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := r.URL.Query().Get("country")
	c := s.tariffs.Currency(country)
	log.Ctx(ctx).DebugContext(ctx, "currency lookup", slog.String("country", country), slog.String("code", c.Code))
	writeJSON(w, http.StatusOK, currencyRateResponse{
		Currency: c.Symbol,
		Rate:     c.Rate,
		Code:     c.Code,
	})
}

type currencyEntry struct {
	Country string  `json:"country"`
	Code    string  `json:"code"`
	Symbol  string  `json:"symbol"`
	Rate    float64 `json:"rate"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	countries := s.tariffs.Countries()
	entries := make([]currencyEntry, 0, len(countries))
	for _, country := range countries {
		c := s.tariffs.Currency(country)
		entries = append(entries, currencyEntry{
			Country: country,
			Code:    c.Code,
			Symbol:  c.Symbol,
			Rate:    c.Rate,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

type tariffBand struct {
	types.TariffBand
	Rate float64 `json:"rate"`
}

type tariffsResponse struct {
	Currency string       `json:"currency"`
	Code     string       `json:"code"`
	Bands    []tariffBand `json:"bands"`
}

// handleListTariffs returns the time-of-use bands with rates converted into
// the currency of the requested country.
func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	c := s.tariffs.Currency(r.URL.Query().Get("country"))
	bands := s.tariffs.Bands()
	res := tariffsResponse{
		Currency: c.Symbol,
		Code:     c.Code,
		Bands:    make([]tariffBand, 0, len(bands)),
	}
	for _, b := range bands {
		res.Bands = append(res.Bands, tariffBand{TariffBand: b, Rate: tariff.Rate(b, c)})
	}
	writeJSON(w, http.StatusOK, res)
}
