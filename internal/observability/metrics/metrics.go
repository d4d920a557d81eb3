package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	upstreamTotal *prometheus.CounterVec
	fallbackTotal prometheus.Counter
	otpTotal      *prometheus.CounterVec
	searchLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novadent",
			Subsystem: "booking",
			Name:      "upstream_requests_total",
			Help:      "Total clinic backend requests",
		}, []string{"endpoint", "status"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novadent",
			Subsystem: "booking",
			Name:      "availability_fallback_total",
			Help:      "Slot searches served from locally generated candidates",
		}),
		otpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novadent",
			Subsystem: "booking",
			Name:      "otp_total",
			Help:      "OTP handshake steps by outcome",
		}, []string{"step", "status"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "novadent",
			Subsystem: "booking",
			Name:      "search_latency_seconds",
			Help:      "Latency of slot searches",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.fallbackTotal, m.otpTotal, m.searchLatency)
	return m
}

func (m *BookingMetrics) ObserveUpstream(endpoint, status string) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *BookingMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

func (m *BookingMetrics) ObserveOTP(step, status string) {
	if m == nil {
		return
	}
	m.otpTotal.WithLabelValues(step, status).Inc()
}

func (m *BookingMetrics) ObserveSearchLatency(seconds float64) {
	if m == nil {
		return
	}
	m.searchLatency.Observe(seconds)
}
