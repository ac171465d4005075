package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	protocolCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "star",
			Subsystem: "protocol",
			Name:      "commands_total",
			Help:      "Device commands by module, command and outcome.",
		},
		[]string{"module", "command", "status"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "star",
			Subsystem: "protocol",
			Name:      "command_duration_seconds",
			Help:      "Command round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"module", "command"},
	)
	channelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "star",
			Subsystem: "protocol",
			Name:      "channel_errors_total",
			Help:      "Per-channel device error codes.",
		},
		[]string{"channel", "code"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "star",
			Subsystem: "monitor",
			Name:      "requests_total",
			Help:      "Monitor HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "star",
			Subsystem: "monitor",
			Name:      "request_duration_seconds",
			Help:      "Monitor HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(protocolCommands, commandDuration, channelErrors, httpRequests, httpDuration)
	})
}

func RecordCommand(module, command, status string, duration time.Duration) {
	RegisterMetrics()
	protocolCommands.WithLabelValues(module, command, status).Inc()
	commandDuration.WithLabelValues(module, command).Observe(duration.Seconds())
}

func RecordChannelError(channel int, code string) {
	RegisterMetrics()
	channelErrors.WithLabelValues(strconv.Itoa(channel), code).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
