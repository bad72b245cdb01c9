package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 工作流指标；nil *Metrics 的方法均为空操作
type Metrics struct {
	admissions  *prometheus.CounterVec
	discharges  prometheus.Counter
	resolutions *prometheus.CounterVec
	syncs       *prometheus.CounterVec
	HTTPLatency *prometheus.HistogramVec
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nest",
			Name:      "admissions_total",
			Help:      "Residents admitted, by source.",
		}, []string{"source"}),
		discharges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nest",
			Name:      "discharges_total",
			Help:      "Residents discharged.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nest",
			Name:      "request_resolutions_total",
			Help:      "Assignment requests resolved, by outcome.",
		}, []string{"outcome"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nest",
			Name:      "medical_sync_attempts_total",
			Help:      "Medical record sync attempts, by result.",
		}, []string{"result"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nest",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(m.admissions, m.discharges, m.resolutions, m.syncs, m.HTTPLatency)
	return m
}

func (m *Metrics) Admitted(source string) {
	if m != nil {
		m.admissions.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) Discharged() {
	if m != nil {
		m.discharges.Inc()
	}
}

// Resolved outcome: accepted / rejected / no_beds
func (m *Metrics) Resolved(outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(outcome).Inc()
	}
}

// SyncAttempt result: success / failure
func (m *Metrics) SyncAttempt(success bool) {
	if m == nil {
		return
	}
	if success {
		m.syncs.WithLabelValues("success").Inc()
	} else {
		m.syncs.WithLabelValues("failure").Inc()
	}
}
