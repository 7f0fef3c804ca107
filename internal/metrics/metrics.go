package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "entrysummary"

// Metrics 处理流水线指标；nil 接收者上的方法均为空操作
type Metrics struct {
	registry   *prom.Registry
	documents  *prom.CounterVec
	rows       prom.Counter
	skipped    *prom.CounterVec
	duration   *prom.HistogramVec
	pollRounds prom.Histogram
}

// New 创建独立 registry 上的指标
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by source and outcome.",
		}, []string{"source", "status"}),
		rows: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Output rows produced.",
		}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_skipped_total",
			Help:      "Line items dropped before expansion, by reason.",
		}, []string{"reason"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "End-to-end processing time per document.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"source"}),
		pollRounds: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_poll_attempts",
			Help:      "Status polls needed per extraction run.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120},
		}),
	}
	m.registry.MustRegister(m.documents, m.rows, m.skipped, m.duration, m.pollRounds)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 底层 registry
func (m *Metrics) Registry() *prom.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDocument 记录一次文档处理
func (m *Metrics) ObserveDocument(source, status string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(source, status).Inc()
	m.rows.Add(float64(rows))
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveSkipped 记录被过滤的明细行
func (m *Metrics) ObserveSkipped(invoiceHeaders, noise int) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues("invoice_header").Add(float64(invoiceHeaders))
	m.skipped.WithLabelValues("noise").Add(float64(noise))
}

// ObservePolls 记录一次抽取的轮询次数
func (m *Metrics) ObservePolls(attempts int) {
	if m == nil || attempts <= 0 {
		return
	}
	m.pollRounds.Observe(float64(attempts))
}
