package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Outcome labels a finished validation request.
type Outcome string

const (
	OutcomeValid    Outcome = "valid"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

var (
	validationsStartedTotal atomic.Uint64
	validationsValidTotal   atomic.Uint64
	validationsInvalidTotal atomic.Uint64
	validationsRejected     atomic.Uint64
	validationsFailedTotal  atomic.Uint64
	upstreamErrorsTotal     atomic.Uint64

	upstreamDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 15000, 30000})
)

// IncValidationStarted increments the started counter.
func IncValidationStarted() {
	validationsStartedTotal.Add(1)
}

// IncValidation increments the counter for the given outcome.
func IncValidation(outcome Outcome) {
	switch outcome {
	case OutcomeValid:
		validationsValidTotal.Add(1)
	case OutcomeInvalid:
		validationsInvalidTotal.Add(1)
	case OutcomeRejected:
		validationsRejected.Add(1)
	default:
		validationsFailedTotal.Add(1)
	}
}

// IncUpstreamError counts failed DJP lookups.
func IncUpstreamError() {
	upstreamErrorsTotal.Add(1)
}

// ObserveUpstreamDurationMs records a DJP lookup duration in milliseconds.
func ObserveUpstreamDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	upstreamDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "efaktur_validations_started_total", "Total validations started", validationsStartedTotal.Load())
	fmt.Fprintf(&buf, "# HELP efaktur_validations_total Finished validations by outcome\n")
	fmt.Fprintf(&buf, "# TYPE efaktur_validations_total counter\n")
	fmt.Fprintf(&buf, "efaktur_validations_total{outcome=%q} %d\n", OutcomeValid, validationsValidTotal.Load())
	fmt.Fprintf(&buf, "efaktur_validations_total{outcome=%q} %d\n", OutcomeInvalid, validationsInvalidTotal.Load())
	fmt.Fprintf(&buf, "efaktur_validations_total{outcome=%q} %d\n", OutcomeRejected, validationsRejected.Load())
	fmt.Fprintf(&buf, "efaktur_validations_total{outcome=%q} %d\n", OutcomeFailed, validationsFailedTotal.Load())
	writeCounter(&buf, "djp_lookup_errors_total", "Total failed DJP lookups", upstreamErrorsTotal.Load())
	writeHistogram(&buf, "djp_lookup_duration_ms", "DJP lookup duration in milliseconds", upstreamDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value into the first bucket whose bound it does not exceed.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
