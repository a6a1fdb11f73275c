// Package metrics exports cycle outcomes to Prometheus.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/autotrack/domain"
)

const namespace = "autotrack"

// Collector records finished cycles
type Collector struct {
	cycles        prometheus.Counter
	duration      prometheus.Histogram
	generated     prometheus.Counter
	uploaded      *prometheus.CounterVec
	monetized     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	lastCycle     prometheus.Gauge
	lastGenerated prometheus.Gauge
}

// NewCollector registers the cycle metrics on reg (the default registerer when nil)
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Number of finished daily cycles.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full cycle.",
			Buckets:   prometheus.ExponentialBuckets(60, 2, 10),
		}),
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_generated_total",
			Help:      "Tracks downloaded by generation workers.",
		}),
		uploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_uploaded_total",
			Help:      "Tracks uploaded per publish account.",
		}, []string{"platform", "account"}),
		monetized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_monetized_total",
			Help:      "Monetization forms submitted per publish account.",
		}, []string{"platform", "account"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Workers that did not complete, by stage.",
		}, []string{"stage"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Finish time of the last cycle.",
		}),
		lastGenerated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_tracks_generated",
			Help:      "Tracks generated by the last cycle.",
		}),
	}

	var err error
	if c.cycles, err = register(reg, c.cycles); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, c.duration); err != nil {
		return nil, err
	}
	if c.generated, err = register(reg, c.generated); err != nil {
		return nil, err
	}
	if c.uploaded, err = register(reg, c.uploaded); err != nil {
		return nil, err
	}
	if c.monetized, err = register(reg, c.monetized); err != nil {
		return nil, err
	}
	if c.failures, err = register(reg, c.failures); err != nil {
		return nil, err
	}
	if c.lastCycle, err = register(reg, c.lastCycle); err != nil {
		return nil, err
	}
	if c.lastGenerated, err = register(reg, c.lastGenerated); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds collector to reg, reusing an identical collector registered earlier
func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return collector, nil
}

// ObserveCycle records one finished report
func (c *Collector) ObserveCycle(report *domain.CycleReport) {
	if c == nil || report == nil {
		return
	}

	c.cycles.Inc()
	if !report.FinishedAt.IsZero() && report.FinishedAt.After(report.StartedAt) {
		c.duration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		c.lastCycle.Set(float64(report.FinishedAt.Unix()))
	}
	c.generated.Add(float64(report.TotalGenerated))
	c.lastGenerated.Set(float64(report.TotalGenerated))

	for _, res := range report.Results {
		c.uploaded.WithLabelValues(string(res.Platform), res.Account).Add(float64(res.UploadCount))
		c.monetized.WithLabelValues(string(res.Platform), res.Account).Add(float64(res.MonetizationCount))
	}
	for _, f := range report.Failures {
		c.failures.WithLabelValues(f.Stage).Inc()
	}
}
