package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumeingest",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "流水线各阶段耗时分布（秒）。",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	pipelineStageFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeingest",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "流水线各阶段失败总数。",
		},
		[]string{"stage"},
	)
)

// 阶段名常量，与日志字段保持一致。
const (
	StageExtract   = "extract"
	StageStructure = "structure"
	StagePersist   = "persist"
)

// ObserveStage 记录一个阶段的耗时与结果。
func ObserveStage(stage string, start time.Time, err error) {
	pipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		pipelineStageFailed.WithLabelValues(stage).Inc()
	}
}
