package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/cakely/auth-service/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth flow metrics

	RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "registrations_total",
		Help:      "Total accounts created.",
	})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "logins_total",
		Help:      "Total login attempts, by outcome.",
	}, []string{"outcome"})

	OTPIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "otp_issued_total",
		Help:      "Total one-time codes issued, by kind.",
	}, []string{"kind"})

	OTPConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "otp_consumed_total",
		Help:      "Total one-time code submissions, by kind and result.",
	}, []string{"kind", "result"})

	PasswordResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "password_resets_total",
		Help:      "Total successful password resets.",
	})

	// Janitor metrics

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "otp_sweep_duration_seconds",
		Help:      "Time taken for one expired-OTP sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	SweepClearedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "otp_sweep_cleared_total",
		Help:      "Total expired OTP slots cleared by the janitor.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RegistrationsTotal,
		LoginsTotal,
		OTPIssuedTotal,
		OTPConsumedTotal,
		PasswordResetsTotal,
		SweepDuration,
		SweepClearedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()), http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, result, status)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}
