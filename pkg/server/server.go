package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/solarslot/solarslot/pkg/common"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/tariff"
	"github.com/solarslot/solarslot/pkg/types"
)

// maxBodyBytes limits JSON request bodies to 1MB.
const maxBodyBytes = 1 << 20

// Scheduler recommends charging slots.
type Scheduler interface {
	Schedule(ctx context.Context, req types.ChargeRequest) types.ScheduleResult
}

// Forecaster produces hourly solar forecasts.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lng float64, hoursAhead int) []types.ForecastPoint
}

// Selector picks the best charger and slot near a user.
type Selector interface {
	Select(ctx context.Context, req types.SmartScheduleRequest) (types.SmartSchedule, error)
}

// tokenVerifier validates an OIDC ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API for SolarSlot.
type Server struct {
	scheduler  Scheduler
	forecaster Forecaster
	selector   Selector
	tariffs    *tariff.Table
	storage    storage.Database
	metrics    *metrics.Recorder
	now        func() time.Time

	listenAddr    string
	httpServer    *http.Server
	adminEmails   []string
	adminVerifier tokenVerifier
	corsOrigins   []string
	release       string
	serverName    string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(sched Scheduler, fc Forecaster, sel Selector, table *tariff.Table, db storage.Database, rec *metrics.Recorder) *Server {
	srv := &Server{
		scheduler:  sched,
		forecaster: fc,
		selector:   sel,
		tariffs:    table,
		storage:    db,
		metrics:    rec,
		now:        time.Now,
		serverName: "solarslot",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	release := lflag.String("release", "production", "Release environment (production or staging)")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to add chargers")
	adminAudience := lflag.String("admin-oidc-audience", "", "Google client ID to validate admin bearer tokens against")
	corsOrigins := lflag.String("cors-origins", "*", "comma-delimited list of origins allowed to call the API")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.release = *release
		srv.adminEmails = splitList(*adminEmails)
		srv.corsOrigins = splitList(*corsOrigins)
		if *adminAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.adminVerifier = provider.Verifier(&oidc.Config{ClientID: *adminAudience}).Verify
		}
		if srv.adminVerifier == nil && srv.release == "production" {
			log.Ctx(context.Background()).Warn("admin-oidc-audience is not set, adding chargers is disabled")
		}
	})

	return srv
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/optimize", s.handleOptimize)
	apiMux.HandleFunc("GET /api/solar-forecast", s.handleSolarForecast)
	apiMux.HandleFunc("POST /api/smart-schedule", s.handleSmartSchedule)
	apiMux.HandleFunc("GET /api/currency-rate", s.handleCurrencyRate)
	apiMux.HandleFunc("GET /api/currencies", s.handleListCurrencies)
	apiMux.HandleFunc("GET /api/tariffs", s.handleListTariffs)
	apiMux.HandleFunc("GET /api/chargers", s.handleListChargers)
	apiMux.HandleFunc("POST /api/chargers", s.handleAddCharger)
	apiMux.HandleFunc("POST /api/book", s.handleBook)
	apiMux.HandleFunc("POST /api/cancel-booking", s.handleCancelBooking)
	apiMux.HandleFunc("GET /api/bookings", s.handleListBookings)
	apiMux.HandleFunc("POST /api/clear-history", s.handleClearHistory)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.corsMiddleware(apiMux))
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(s.requestMiddleware(mux))))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr), slog.String("release", s.release))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// decodeBody decodes a size-limited JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"service": "SolarSlot API",
		"version": common.Version(),
		"release": s.release,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags the request logger with the path and records the
// latency of every request by its matched route pattern.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		r = r.WithContext(log.WithAttrs(r.Context(), slog.String("reqPath", r.URL.Path)))

		sr := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sr, r)

		// the mux fills in the pattern on the request it was handed
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.Request(route, sr.code, time.Since(start))
	})
}
