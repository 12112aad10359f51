// Package metrics holds the prometheus collectors for content generation and
// slide export.
//
// Metrics:
//   - carousel_generations_total{result} - generation attempts by outcome
//   - carousel_generation_duration_seconds - generation latency
//   - carousel_generated_slots_total{state} - slots filled or left untouched
//   - carousel_exports_total{format,state} - finished export jobs
//   - carousel_export_duration_seconds{format} - export job latency
//   - carousel_exports_running - exports currently in flight
package metrics

import (
	"context"
	"errors"
	"time"

	"carousel-studio/aifill"
	"carousel-studio/core"
	"carousel-studio/export"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	SlotsTotal         *prometheus.CounterVec

	ExportsTotal   *prometheus.CounterVec
	ExportDuration *prometheus.HistogramVec
	ExportsRunning prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carousel_generations_total",
				Help: "Total number of content generation attempts",
			},
			[]string{"result"}, // "ok", "no_slots", "invalid", "failed"
		),
		GenerationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carousel_generation_duration_seconds",
			Help:    "Duration of content generation in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		SlotsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carousel_generated_slots_total",
				Help: "Total number of template slots seen by successful generations",
			},
			[]string{"state"}, // "filled", "unfilled"
		),
		ExportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carousel_exports_total",
				Help: "Total number of finished export jobs",
			},
			[]string{"format", "state"},
		),
		ExportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carousel_export_duration_seconds",
				Help:    "Duration of export jobs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"format"},
		),
		ExportsRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "carousel_exports_running",
			Help: "Number of export jobs currently running",
		}),
	}
}

// ObserveGeneration records the outcome of one Fill call.
func (m *Metrics) ObserveGeneration(res *aifill.BuildResult, err error, took time.Duration) {
	m.GenerationDuration.Observe(took.Seconds())
	switch {
	case err == nil:
		m.GenerationsTotal.WithLabelValues("ok").Inc()
		m.SlotsTotal.WithLabelValues("filled").Add(float64(res.FilledSlots))
		m.SlotsTotal.WithLabelValues("unfilled").Add(float64(res.TotalSlots - res.FilledSlots))
	case errors.Is(err, core.ErrNoSlots):
		m.GenerationsTotal.WithLabelValues("no_slots").Inc()
	case errors.Is(err, core.ErrInvalidInput):
		m.GenerationsTotal.WithLabelValues("invalid").Inc()
	default:
		m.GenerationsTotal.WithLabelValues("failed").Inc()
	}
}

// ExportStarted marks a job as in flight.
func (m *Metrics) ExportStarted() { m.ExportsRunning.Inc() }

// ObserveExport records job status updates. Only finished states count.
func (m *Metrics) ObserveExport(st export.JobStatus) {
	if !st.Finished() {
		return
	}
	format := string(st.Options.Format)
	m.ExportsRunning.Dec()
	m.ExportsTotal.WithLabelValues(format, string(st.State)).Inc()
	m.ExportDuration.WithLabelValues(format).Observe(st.Duration.Seconds())
}

// Filler fills templates with generated copy.
type Filler interface {
	Fill(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error)
}

type instrumentedFiller struct {
	next Filler
	m    *Metrics
}

// InstrumentFiller wraps f so every Fill is observed.
func (m *Metrics) InstrumentFiller(f Filler) Filler {
	return &instrumentedFiller{next: f, m: m}
}

func (f *instrumentedFiller) Fill(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error) {
	start := time.Now()
	res, err := f.next.Fill(ctx, tpl, in)
	f.m.ObserveGeneration(res, err, time.Since(start))
	return res, err
}
