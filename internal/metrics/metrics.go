// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordAcronymCreated()
	RecordCategoriesReconciled(added, removed int)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus           *prometheus.CounterVec
	requestLatency       prometheus.Histogram
	acronymsCreated      prometheus.Counter
	categoriesReconciled *prometheus.CounterVec
	loginAttempts        *prometheus.CounterVec
	sessionsCleaned      prometheus.Counter
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acrodex_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "acrodex_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		acronymsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acrodex_acronyms_created_total",
			Help: "作成された略語の合計数",
		}),
		categoriesReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acrodex_categories_reconciled_total",
			Help: "カテゴリ集合の調整で適用されたエッジ変更の合計数",
		}, []string{"operation"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acrodex_login_attempts_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acrodex_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.acronymsCreated,
		c.categoriesReconciled,
		c.loginAttempts,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAcronymCreated は略語の作成を記録する。
func (c *Collector) RecordAcronymCreated() {
	c.acronymsCreated.Inc()
}

// RecordCategoriesReconciled はカテゴリ集合の調整で適用された変更数を記録する。
func (c *Collector) RecordCategoriesReconciled(added, removed int) {
	c.categoriesReconciled.WithLabelValues("add").Add(float64(added))
	c.categoriesReconciled.WithLabelValues("remove").Add(float64(removed))
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginAttempts.WithLabelValues("success").Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginAttempts.WithLabelValues("failure").Inc()
}

// RecordSessionsCleaned はクリーンアップで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// NewHTTPMiddleware はリクエストごとにステータスコードとレイテンシを記録する
// ミドルウェアを返す。
func NewHTTPMiddleware(collector MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}
