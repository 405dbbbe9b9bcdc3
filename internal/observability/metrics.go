package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Client-side session metrics.
	clientConnState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_client_connection_state",
			Help: "Current connection state of the client session (1 for the active state).",
		},
		[]string{"state"},
	)
	clientReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_reconnects_total",
			Help: "Total number of reconnect attempts scheduled by the client.",
		},
	)
	clientFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_frames_total",
			Help: "Total number of inbound frames by type, including malformed and unknown.",
		},
		[]string{"type"},
	)
	clientSendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_sends_total",
			Help: "Total number of outbound chat frames written to the socket.",
		},
	)
	clientUploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_uploads_total",
			Help: "Total number of completed attachment uploads.",
		},
	)

	// Devserver metrics.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the devserver.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		clientConnState,
		clientReconnectsTotal,
		clientFramesTotal,
		clientSendsTotal,
		clientUploadsTotal,
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

// SetClientConnState marks one state active and all others inactive.
func SetClientConnState(state string) {
	for _, s := range []string{"disconnected", "connecting", "connected", "reconnecting"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		clientConnState.WithLabelValues(s).Set(v)
	}
}

func IncClientReconnect() { clientReconnectsTotal.Inc() }

func IncClientFrame(frameType string) { clientFramesTotal.WithLabelValues(frameType).Inc() }

func IncClientSend() { clientSendsTotal.Inc() }

func IncClientUpload() { clientUploadsTotal.Inc() }

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() { wsActiveConnections.Inc() }

func DecWSActive() { wsActiveConnections.Dec() }

func IncWSEvent(event string) { wsEventsTotal.WithLabelValues(event).Inc() }

func IncAMQPPublishError() { amqpPublishErrorsTotal.Inc() }
