// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。nil 收集器的所有方法都是安全的空操作。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 迭代循环指标
	contentCreatedTotal prometheus.Counter
	focusGroupRunsTotal *prometheus.CounterVec
	editorRunsTotal     *prometheus.CounterVec
	orchestrationsTotal *prometheus.CounterVec
	cycleRatings        prometheus.Histogram
	evaluationsTotal    *prometheus.CounterVec

	// LLM 指标
	llmTokensUsed *prometheus.CounterVec
	llmCost       prometheus.Counter

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并把指标注册到给定 Registerer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 迭代循环指标
	c.contentCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_created_total",
			Help:      "Total number of content items created",
		},
	)

	c.focusGroupRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "focus_group_runs_total",
			Help:      "Total number of focus group evaluation runs",
		},
		[]string{"status"},
	)

	c.editorRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_runs_total",
			Help:      "Total number of editor revision runs",
		},
		[]string{"status"},
	)

	c.orchestrationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_total",
			Help:      "Total number of orchestration runs by terminal reason",
		},
		[]string{"reason"},
	)

	c.cycleRatings = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_average_rating",
			Help:      "Distribution of per-cycle average ratings",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	c.evaluationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persona_evaluations_total",
			Help:      "Total number of persona evaluations",
		},
		[]string{"status"},
	)

	// LLM 指标
	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"type"}, // type: prompt, completion
	)

	c.llmCost = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_total",
			Help:      "Total LLM cost in USD",
		},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🔁 迭代循环指标记录
// =============================================================================

// ContentCreated 记录新建内容
func (c *Collector) ContentCreated() {
	if c == nil {
		return
	}
	c.contentCreatedTotal.Inc()
}

// FocusGroupRun 记录一次焦点小组评估，status 为 ok 或 error。
func (c *Collector) FocusGroupRun(status string) {
	if c == nil {
		return
	}
	c.focusGroupRunsTotal.WithLabelValues(status).Inc()
}

// EditorRun 记录一次编辑修订，status 为 ok 或 error。
func (c *Collector) EditorRun(status string) {
	if c == nil {
		return
	}
	c.editorRunsTotal.WithLabelValues(status).Inc()
}

// OrchestrationFinished 按终止原因记录编排运行。
func (c *Collector) OrchestrationFinished(reason string) {
	if c == nil {
		return
	}
	c.orchestrationsTotal.WithLabelValues(reason).Inc()
}

// RatingObserved 记录一轮循环的平均评分。
func (c *Collector) RatingObserved(rating float64) {
	if c == nil {
		return
	}
	c.cycleRatings.Observe(rating)
}

// EvaluationRecorded 记录单个画像评估的结果。
func (c *Collector) EvaluationRecorded(status string) {
	if c == nil {
		return
	}
	c.evaluationsTotal.WithLabelValues(status).Inc()
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// TokensUsed 记录 token 消耗
func (c *Collector) TokensUsed(promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmTokensUsed.WithLabelValues("prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues("completion").Add(float64(completionTokens))
}

// CostAdded 记录新增费用（美元）
func (c *Collector) CostAdded(cost float64) {
	if c == nil {
		return
	}
	if cost > 0 {
		c.llmCost.Add(cost)
	}
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	if c == nil {
		return
	}
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
