package services

import (
	"fmt"
	"strconv"

	"infra-cli/internal/logger"
	"infra-cli/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
)

var (
	tunnelLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_tunnel_launch_total",
			Help: "Tunnel launches by result",
		},
		[]string{"result"},
	)

	tunnelReadySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infra_tunnel_ready_seconds",
			Help:    "Time from process start until the status API answered",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	tunnelStatusPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_tunnel_status_poll_total",
			Help: "Readiness polls of the tunnel status API",
		},
	)

	executableSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_tunnel_executable_total",
			Help: "Resolved tunnel executables by source",
		},
		[]string{"source"},
	)

	backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_backend_request_total",
			Help: "Provisioning backend requests",
		},
		[]string{"endpoint", "code"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infra_backend_request_duration_seconds",
			Help:    "Duration of provisioning backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	environmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_environment_created_total",
			Help: "Environments requested from the backend",
		},
		[]string{"variant"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_http_request_total",
			Help: "Requests served by the session status server",
		},
		[]string{"path"},
	)

	httpErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_http_error_total",
			Help: "Session status server responses with status >= 400",
		},
	)
)

func init() {
	prometheus.MustRegister(tunnelLaunches)
	prometheus.MustRegister(tunnelReadySeconds)
	prometheus.MustRegister(tunnelStatusPolls)
	prometheus.MustRegister(executableSources)
	prometheus.MustRegister(backendRequests)
	prometheus.MustRegister(backendDuration)
	prometheus.MustRegister(environmentsCreated)
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpErrors)
}

func recordLaunch(result string, readySeconds float64) {
	tunnelLaunches.WithLabelValues(result).Inc()
	if result == "ready" {
		tunnelReadySeconds.Observe(readySeconds)
	}
}

func recordStatusPoll() {
	tunnelStatusPolls.Inc()
}

func recordExecutableSource(source models.ExecutableSource) {
	executableSources.WithLabelValues(string(source)).Inc()
}

func recordBackendRequest(endpoint string, code int, seconds float64) {
	backendRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	backendDuration.WithLabelValues(endpoint).Observe(seconds)
}

func recordEnvironmentCreated(variant models.Variant) {
	environmentsCreated.WithLabelValues(string(variant)).Inc()
}

// RecordHTTPRequest counts one request served by the session status server.
func RecordHTTPRequest(path string, status int) {
	httpRequests.WithLabelValues(path).Inc()
	if status >= 400 {
		httpErrors.Inc()
	}
}

// GetTotalRequestCount 获取状态服务请求总数
func GetTotalRequestCount() int64 {
	return int64(counterValue(httpRequests))
}

// GetTotalErrorCount 获取状态服务错误请求数
func GetTotalErrorCount() int64 {
	return int64(counterValue(httpErrors))
}

func counterValue(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var total float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err == nil && pb.Counter != nil {
			total += pb.Counter.GetValue()
		}
	}
	return total
}

/**
 * Push collected metrics to a Prometheus pushgateway
 * @param {string} gateway - Pushgateway address, empty disables pushing
 * @param {string} job - Job label of the pushed group
 * @returns {error} Returns error if push fails
 */
func PushMetrics(gateway, job string) error {
	if gateway == "" {
		return nil
	}
	if job == "" {
		job = "infra"
	}
	if err := push.New(gateway, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gateway, err)
	}
	logger.Infof("Metrics pushed to %s (job: %s)", gateway, job)
	return nil
}
