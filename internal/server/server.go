package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jianglinzhang/Z2API/internal/metrics"
	"github.com/jianglinzhang/Z2API/internal/pool"
	"github.com/jianglinzhang/Z2API/internal/ratelimit"
	"github.com/jianglinzhang/Z2API/internal/upstream"
	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// Server HTTP服务器
type Server struct {
	config     *types.Config
	pool       *pool.Pool
	upstream   *upstream.Client
	limiter    *ratelimit.Limiter
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer 创建服务器实例
func NewServer(config *types.Config, credPool *pool.Pool, client *upstream.Client) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:   config,
		pool:     credPool,
		upstream: client,
		limiter:  ratelimit.NewLimiter(config.Gateway.MaxRequestsPerMinute),
	}

	s.engine = s.buildEngine()
	return s
}

// buildEngine 构建路由
func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORSMiddleware())
	engine.Use(LoggingMiddleware())

	// 公开端点，不需要认证
	engine.GET("/", s.handleIndex)
	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// OpenAI兼容端点
	v1 := engine.Group("/v1")
	v1.Use(AuthMiddleware(s.config.Gateway.APIKey))
	v1.GET("/models", s.handleModels)
	v1.POST("/chat/completions", RateLimitMiddleware(s.limiter), s.handleChatCompletions)

	return engine
}

// Start 启动HTTP服务器（阻塞直到服务器关闭）
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.engine,
		// 流式响应不设写超时，超时控制在上游客户端和请求context上
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HTTP服务器启动: http://%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP服务器启动失败: %w", err)
	}
	return nil
}

// Stop 优雅关闭服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	logger.Info("正在关闭HTTP服务器...")
	return s.httpServer.Shutdown(ctx)
}

// Engine 返回gin引擎（供测试使用）
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
