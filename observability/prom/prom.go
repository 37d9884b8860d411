// Package prom exports the SDK's transport metrics to Prometheus.
package prom

import (
	"net/http"
	"time"

	"github.com/computesdk/computesdk-sub001/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// TransportObserver exports transport metrics to Prometheus.
type TransportObserver struct {
	connGauge        prometheus.Gauge
	subscribedGauge  prometheus.Gauge
	reconnectTotal   prometheus.Counter
	reconnectFailed  prometheus.Counter
	closeTotal       *prometheus.CounterVec
	decodeErrorTotal *prometheus.CounterVec
	sendDroppedTotal prometheus.Counter
	pongLatency      prometheus.Histogram
}

// NewTransportObserver registers transport metrics on the registry.
func NewTransportObserver(reg *prometheus.Registry) *TransportObserver {
	o := &TransportObserver{
		connGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sandbox_transport_connected",
			Help: "1 when the underlying websocket is open, 0 otherwise.",
		}),
		subscribedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sandbox_transport_subscribed_channels",
			Help: "Current size of the subscription set.",
		}),
		reconnectTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_transport_reconnect_attempts_total",
			Help: "Reconnect attempts made by the transport.",
		}),
		reconnectFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_transport_reconnect_failed_total",
			Help: "Times the reconnect attempt ceiling was reached.",
		}),
		closeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_transport_close_total",
			Help: "Connection close events by reason.",
		}, []string{"reason"}),
		decodeErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sandbox_transport_decode_errors_total",
			Help: "Inbound frames dropped due to a decode failure, by reason.",
		}, []string{"reason"}),
		sendDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sandbox_transport_send_dropped_total",
			Help: "Outbound sends dropped because the socket was not open.",
		}),
		pongLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sandbox_transport_pong_latency_seconds",
			Help:    "Time between sending a ping and updating the last-pong timestamp.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		o.connGauge,
		o.subscribedGauge,
		o.reconnectTotal,
		o.reconnectFailed,
		o.closeTotal,
		o.decodeErrorTotal,
		o.sendDroppedTotal,
		o.pongLatency,
	)
	return o
}

func (o *TransportObserver) ConnState(open bool) {
	if open {
		o.connGauge.Set(1)
		return
	}
	o.connGauge.Set(0)
}

func (o *TransportObserver) Subscribed(n int) {
	o.subscribedGauge.Set(float64(n))
}

func (o *TransportObserver) ReconnectAttempt(int) {
	o.reconnectTotal.Inc()
}

func (o *TransportObserver) ReconnectFailed() {
	o.reconnectFailed.Inc()
}

func (o *TransportObserver) Close(reason observability.CloseReason) {
	o.closeTotal.WithLabelValues(string(reason)).Inc()
}

func (o *TransportObserver) DecodeError(reason observability.DecodeFailure) {
	o.decodeErrorTotal.WithLabelValues(string(reason)).Inc()
}

func (o *TransportObserver) SendDropped() {
	o.sendDroppedTotal.Inc()
}

func (o *TransportObserver) PongLatency(d time.Duration) {
	o.pongLatency.Observe(d.Seconds())
}
