package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jianglinzhang/Z2API/internal/metrics"
	"github.com/jianglinzhang/Z2API/internal/ratelimit"
	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// AuthMiddleware Bearer API Key认证中间件
// 网关的API Key与上游token完全独立，这里只认证入站请求
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			abortWithError(c, types.NewUnauthorizedError("Missing Authorization header"))
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != apiKey {
			abortWithError(c, types.NewUnauthorizedError("Invalid API key"))
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware 网关级限流中间件
// 在凭证获取之前执行，被限流的请求不消耗任何凭证
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			metrics.RateLimitedTotal.Inc()
			abortWithError(c, types.NewRateLimitedError("Rate limit exceeded, please retry later"))
			return
		}
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// LoggingMiddleware 请求日志中间件，每个请求分配一个短ID便于追踪
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()[:8]
		c.Set("request_id", requestID)

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		logger.Info("[%s] %s %s - %d (%v)", requestID, c.Request.Method, path, status, duration)

		metrics.RequestsTotal.WithLabelValues(path, statusLabel(status)).Inc()
		metrics.RequestDuration.WithLabelValues(path).Observe(duration.Seconds())
	}
}

// statusLabel 状态码转标签，避免metrics基数过高
func statusLabel(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// abortWithError 以网关错误格式中断请求
func abortWithError(c *gin.Context, err *types.GatewayError) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"error": gin.H{
			"type":    err.Type,
			"message": err.Message,
		},
		"timestamp": time.Now().Unix(),
	})
}
