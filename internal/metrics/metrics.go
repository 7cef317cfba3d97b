// 包 metrics 记录一次抓取运行的 Prometheus 指标。
// 批处理进程没有常驻的 /metrics 端点，运行结束后可写成 node_exporter textfile。
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-subpull/internal/model"
	"go-subpull/internal/paginate"
	"go-subpull/internal/search"
)

// Metrics 持有独立的 registry，避免污染全局默认 registry（测试可多次创建）。
type Metrics struct {
	reg       *prometheus.Registry
	pages     *prometheus.CounterVec
	fetched   *prometheus.CounterVec
	written   *prometheus.CounterVec
	watermark *prometheus.GaugeVec
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subpull_pages_total",
			Help: "Search API pages requested, per channel.",
		}, []string{"channel"}),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subpull_records_fetched_total",
			Help: "Records returned by the search API before trimming, per channel.",
		}, []string{"channel"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subpull_records_written_total",
			Help: "Records written to the channel artifact, per channel.",
		}, []string{"channel"}),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subpull_watermark_seconds",
			Help: "Current exclusive upper bound (epoch seconds) of the backward pagination.",
		}, []string{"channel"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subpull_request_duration_seconds",
			Help:    "Duration of search API page requests, pacing excluded.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subpull_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful run.",
		}),
	}
	m.reg.MustRegister(m.pages, m.fetched, m.written, m.watermark, m.duration, m.lastRun)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObservePage 可直接作为 paginate.Options.OnPage 使用。
func (m *Metrics) ObservePage(ev paginate.PageEvent) {
	m.pages.WithLabelValues(ev.Channel).Inc()
	m.fetched.WithLabelValues(ev.Channel).Add(float64(ev.Count))
	m.watermark.WithLabelValues(ev.Channel).Set(float64(ev.Watermark))
}

func (m *Metrics) ObserveRequest(d time.Duration) { m.duration.Observe(d.Seconds()) }

func (m *Metrics) ObserveWritten(channel string, n int) {
	m.written.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) MarkSuccess(t time.Time) { m.lastRun.Set(float64(t.Unix())) }

// WriteTextfile 以 textfile 格式原子写出全部指标。
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Timed 包装 Searcher，记录每次请求耗时（无论成功与否）。
func (m *Metrics) Timed(s search.Searcher) search.Searcher {
	return timedSearcher{next: s, m: m}
}

type timedSearcher struct {
	next search.Searcher
	m    *Metrics
}

func (t timedSearcher) Search(ctx context.Context, q search.Query) ([]model.Record, error) {
	start := time.Now()
	recs, err := t.next.Search(ctx, q)
	t.m.ObserveRequest(time.Since(start))
	return recs, err
}
