package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resumeingest/internal/api/middleware"
	"resumeingest/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎：恢复、关联 ID、结构化日志与指标采集。
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 上传页：选择 PDF、可选预上传到托管存储、提交解析并展示结果。
	router.StaticFile("/", "./web/static/index.html")

	return router
}
