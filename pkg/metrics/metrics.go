package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the service's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	weatherFetches   *prometheus.CounterVec
	weatherLatency   *prometheus.HistogramVec
	schedules        *prometheus.CounterVec
	smartSchedules   *prometheus.CounterVec
	bookings         *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

// New registers the collectors on reg. If reg is nil the default registry is
// used. Collectors that are already registered are reused.
func New(reg *prometheus.Registry) (*Recorder, error) {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer = reg
		gatherer = reg
	}

	r := &Recorder{gatherer: gatherer}
	var err error
	if r.weatherFetches, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarslot_weather_fetches_total",
		Help: "Weather provider fetches by provider and result",
	}, []string{"provider", "result"})); err != nil {
		return nil, err
	}
	if r.weatherLatency, err = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solarslot_weather_fetch_seconds",
		Help:    "Weather provider fetch latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if r.schedules, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarslot_schedules_total",
		Help: "Slot schedule requests by priority and outcome",
	}, []string{"priority", "outcome"})); err != nil {
		return nil, err
	}
	if r.smartSchedules, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarslot_smart_schedules_total",
		Help: "Composite charger selections by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if r.bookings, err = register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarslot_bookings_total",
		Help: "Booking attempts by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if r.requestDurations, err = register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solarslot_http_request_seconds",
		Help:    "HTTP request latency by route pattern and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})); err != nil {
		return nil, err
	}
	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// WeatherFetch records a weather provider call.
func (r *Recorder) WeatherFetch(provider string, took time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.weatherFetches.WithLabelValues(provider, result).Inc()
	r.weatherLatency.WithLabelValues(provider).Observe(took.Seconds())
}

// Schedule records a scheduler outcome: ok, infeasible or error.
func (r *Recorder) Schedule(priority, outcome string) {
	if r == nil {
		return
	}
	r.schedules.WithLabelValues(priority, outcome).Inc()
}

// SmartSchedule records a composite selection outcome: ok, no_option or error.
func (r *Recorder) SmartSchedule(outcome string) {
	if r == nil {
		return
	}
	r.smartSchedules.WithLabelValues(outcome).Inc()
}

// Booking records a booking attempt: created, conflict or error.
func (r *Recorder) Booking(result string) {
	if r == nil {
		return
	}
	r.bookings.WithLabelValues(result).Inc()
}

// Request records how long an HTTP request took.
func (r *Recorder) Request(route string, code int, took time.Duration) {
	if r == nil {
		return
	}
	r.requestDurations.WithLabelValues(route, strconv.Itoa(code)).Observe(took.Seconds())
}
