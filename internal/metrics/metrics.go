// Package metrics holds the Prometheus collectors shared by the remote's
// components.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registration mode label values.
const (
	ModeFresh  = "fresh"  // explicit address, no token presented
	ModeStored = "stored" // stored token re-presented
)

var (
	// CommandsTotal counts device commands by name and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvremote_commands_total",
		Help: "The total number of device commands invoked",
	}, []string{"command", "result"})

	// RegistrationsTotal counts registration exchanges.
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvremote_registrations_total",
		Help: "The total number of registration exchanges with the device",
	}, []string{"mode", "result"})

	// PromptsTotal counts on-screen pairing prompts shown by the device.
	PromptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvremote_prompts_total",
		Help: "The total number of pairing prompts the device displayed",
	})

	// CacheSyncsTotal counts forced collection syncs.
	CacheSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvremote_cache_syncs_total",
		Help: "The total number of forced cache syncs",
	}, []string{"collection", "result"})

	// HTTPRequestsTotal counts API requests by route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvremote_http_requests_total",
		Help: "The total number of HTTP API requests",
	}, []string{"route", "status"})
)

// Handler returns the HTTP handler for Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveCommand records one device command.
func ObserveCommand(command string, err error) {
	CommandsTotal.WithLabelValues(command, Result(err)).Inc()
}

// ObserveRegistration records one registration exchange.
func ObserveRegistration(mode string, err error) {
	RegistrationsTotal.WithLabelValues(mode, Result(err)).Inc()
}

// IncPrompt records a pairing prompt.
func IncPrompt() {
	PromptsTotal.Inc()
}

// ObserveCacheSync records one forced sync of collection.
func ObserveCacheSync(collection string, err error) {
	CacheSyncsTotal.WithLabelValues(collection, Result(err)).Inc()
}

// ObserveHTTP records one API request.
func ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
