package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"mlops-service/internal/domain"
)

// ServiceName 服务标识
const ServiceName = "mlops-service"

// ServiceVersion 服务版本
const ServiceVersion = "1.0.0"

// Logger 日志接口
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Store 存储网关接口
type Store interface {
	Configured() bool
	Enabled() bool
	Insert(ctx context.Context, ev *domain.TrackedEvent) bool
}

// Recorder 指标聚合接口
type Recorder interface {
	Record(ev *domain.TrackedEvent) bool
	Gather() ([]*dto.MetricFamily, error)
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	engine   *gin.Engine
	store    Store
	recorder Recorder
	logger   Logger
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(store Store, recorder Recorder, logger Logger, debug bool) *HTTPServer {
	// 设置 Gin 模式
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	s := &HTTPServer{
		engine:   engine,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPServer) registerMiddlewares() {
	// Recovery 中间件，panic 统一转成通用 500，真实原因只记日志
	s.engine.Use(s.recovery())

	// 请求日志中间件
	s.engine.Use(s.requestLogger())

	// CORS 中间件
	s.engine.Use(s.corsMiddleware())
}

// recovery Recovery 中间件
func (s *HTTPServer) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}

// requestLogger 请求日志中间件
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestID),
		)
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes() {
	s.engine.GET("/", s.root)
	s.engine.GET("/health", s.healthCheck)
	s.engine.POST("/track", s.trackMetrics)
	s.engine.GET("/metrics", s.prometheusMetrics)
}

// root 服务信息
func (s *HTTPServer) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "MLOps Monitoring Service",
		"version": ServiceVersion,
		"endpoints": gin.H{
			"health":             "/health",
			"track_metrics":      "/track (POST)",
			"prometheus_metrics": "/metrics",
			"root":               "/",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// healthCheck 健康检查
func (s *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":              "healthy",
		"service":             ServiceName,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"monitoring":          "prometheus",
		"database_configured": s.store.Configured(),
		"database_enabled":    s.store.Enabled(),
	})
}

// trackMetrics 接收外部聊天应用上报的性能事件
func (s *HTTPServer) trackMetrics(c *gin.Context) {
	var payload map[string]interface{}

	// 解析失败在这一层与服务端故障不可区分，保持为通用 500 而不是 400
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.logger.Error("Error tracking metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := domain.Validate(payload); err != nil {
		s.respondValidationError(c, err)
		return
	}

	ev := domain.FromMap(payload)

	// 两个副作用独立执行，都会被尝试，哪个失败不截断另一个
	prometheusOK := s.recorder.Record(ev)
	dbOK := s.store.Insert(c.Request.Context(), ev)

	if !prometheusOK || !dbOK {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store metrics"})
		return
	}

	s.logger.Info("Successfully tracked metrics", zap.String("business_id", ev.BusinessID))
	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            "Metrics tracked successfully",
		"prometheus_updated": prometheusOK,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// respondValidationError 校验错误转 400 响应
func (s *HTTPServer) respondValidationError(c *gin.Context, err error) {
	var missing *domain.MissingFieldError

	switch {
	case errors.Is(err, domain.ErrNoData):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No metrics data provided"})
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Missing required field: %s", missing.Field),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// prometheusMetrics 文本格式导出当前全部指标
func (s *HTTPServer) prometheusMetrics(c *gin.Context) {
	families, err := s.recorder.Gather()
	if err != nil {
		s.logger.Error("Error generating Prometheus metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate metrics"})
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, format)
	for _, family := range families {
		// 还没有样本的序列只输出 HELP/TYPE 头，文本编码器不接受空 family
		if len(family.GetMetric()) == 0 {
			fmt.Fprintf(&buf, "# HELP %s %s\n", family.GetName(), family.GetHelp())
			fmt.Fprintf(&buf, "# TYPE %s %s\n", family.GetName(), strings.ToLower(family.GetType().String()))
			continue
		}
		if err := encoder.Encode(family); err != nil {
			s.logger.Error("Error generating Prometheus metrics", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate metrics"})
			return
		}
	}

	c.Data(http.StatusOK, string(format), buf.Bytes())
}

// Engine 返回 Gin 引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}
