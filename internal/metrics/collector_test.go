package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := newTestCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.focusGroupRunsTotal)
	assert.NotNil(t, collector.editorRunsTotal)
	assert.NotNil(t, collector.llmTokensUsed)
	assert.NotNil(t, collector.llmCost)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := newTestCollector()

	// 记录请求
	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond)

	// 验证指标
	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)

	// 再记录一次相同的请求
	collector.RecordHTTPRequest("GET", "/test", 200, 50*time.Millisecond)

	// 验证计数增加
	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_CycleMetrics(t *testing.T) {
	collector := newTestCollector()

	collector.ContentCreated()
	collector.FocusGroupRun("ok")
	collector.FocusGroupRun("error")
	collector.EditorRun("ok")
	collector.OrchestrationFinished("target_rating_met")
	collector.RatingObserved(7.5)
	collector.EvaluationRecorded("ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.contentCreatedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.focusGroupRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.focusGroupRunsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.editorRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.orchestrationsTotal.WithLabelValues("target_rating_met")))
	assert.Greater(t, testutil.CollectAndCount(collector.cycleRatings), 0)
}

func TestCollector_TokensAndCost(t *testing.T) {
	collector := newTestCollector()

	collector.TokensUsed(100, 50)
	collector.CostAdded(0.01)
	collector.CostAdded(0) // 零费用不计

	assert.Equal(t, float64(100), testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("prompt")))
	assert.Equal(t, float64(50), testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("completion")))
	assert.InDelta(t, 0.01, testutil.ToFloat64(collector.llmCost), 1e-9)
}

func TestCollector_RecordDBConnections(t *testing.T) {
	collector := newTestCollector()

	collector.RecordDBConnections("postgres", 10, 5)

	assert.Equal(t, float64(10), testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, float64(5), testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector

	// nil 收集器全部为空操作，不应 panic
	collector.ContentCreated()
	collector.FocusGroupRun("ok")
	collector.EditorRun("ok")
	collector.OrchestrationFinished("error")
	collector.RatingObserved(5)
	collector.EvaluationRecorded("ok")
	collector.TokensUsed(1, 1)
	collector.CostAdded(0.1)
	collector.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	collector.RecordDBConnections("db", 1, 1)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond)
			collector.FocusGroupRun("ok")
			collector.CostAdded(0.01)
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, float64(10), testutil.ToFloat64(collector.focusGroupRunsTotal.WithLabelValues("ok")))
	assert.InDelta(t, 0.1, testutil.ToFloat64(collector.llmCost), 1e-9)
}
