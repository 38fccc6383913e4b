package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jianglinzhang/Z2API/internal/bridge"
	"github.com/jianglinzhang/Z2API/internal/metrics"
	"github.com/jianglinzhang/Z2API/internal/pool"
	"github.com/jianglinzhang/Z2API/internal/upstream"
	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// handleIndex 服务标识端点
func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(200, gin.H{
		"service": "Z2API",
		"status":  "running",
		"model":   s.config.Upstream.ModelName,
	})
}

// handleHealth 健康检查端点，附带凭证池状态概览
func (s *Server) handleHealth(c *gin.Context) {
	statuses := s.pool.Statuses()
	c.JSON(200, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"credentials": gin.H{
			"total":   s.pool.Len(),
			"healthy": statuses[pool.StatusHealthy],
			"suspect": statuses[pool.StatusSuspect],
			"dead":    statuses[pool.StatusDead],
		},
	})
}

// handleModels 模型列表端点，网关只暴露一个模型
func (s *Server) handleModels(c *gin.Context) {
	c.JSON(200, types.ModelsResponse{
		Object: "list",
		Data: []types.ModelInfo{
			{
				ID:      s.config.Upstream.ModelName,
				Object:  "model",
				Created: time.Now().Unix(),
				OwnedBy: "z.ai",
			},
		},
	})
}

// handleChatCompletions 聊天完成端点
// 处理顺序：解析校验 → 获取凭证 → 打开上游流 → 按模式桥接
// 校验失败的请求不消耗凭证
func (s *Server) handleChatCompletions(c *gin.Context) {
	var req types.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, types.NewInvalidRequestError("Invalid request body: "+err.Error()))
		return
	}

	if err := upstream.ValidateRequest(&req); err != nil {
		writeGatewayError(c, err)
		return
	}

	if req.Model != s.config.Upstream.ModelName {
		writeError(c, types.NewInvalidRequestError("Unknown model: "+req.Model))
		return
	}

	// 客户端未指定stream时使用配置的默认模式
	streamMode := s.config.Gateway.DefaultStream
	if req.Stream != nil {
		streamMode = *req.Stream
	}

	cred, err := s.pool.Acquire()
	if err != nil {
		logger.Warn("凭证池耗尽，拒绝请求")
		writeError(c, types.NewNoCredentialError())
		return
	}

	body, err := s.upstream.Open(c.Request.Context(), &req, cred.Token())
	if err != nil {
		s.reportFailure(cred, err)
		writeError(c, types.NewUpstreamUnavailableError("Upstream request failed"))
		return
	}
	defer body.Close()

	if streamMode {
		s.streamCompletion(c, cred, body)
	} else {
		s.collectCompletion(c, &req, cred, body)
	}

	metrics.SetCredentialStatus(statusCounts(s.pool))
}

// streamCompletion 流式转发上游响应
func (s *Server) streamCompletion(c *gin.Context, cred *pool.Credential, body io.Reader) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(200)

	err := bridge.Stream(c.Request.Context(), body, c.Writer, c.Writer, s.config.Upstream.ModelName)
	switch {
	case err == nil:
		s.pool.Report(cred, pool.OutcomeSuccess)
	case errors.Is(err, context.Canceled):
		// 客户端断开不算凭证失败
		s.pool.Report(cred, pool.OutcomeSuccess)
	default:
		logger.Warn("流式转发失败: %v", err)
		metrics.UpstreamFailuresTotal.WithLabelValues("stream").Inc()
		s.pool.Report(cred, pool.OutcomeTransientFailure)
	}
}

// collectCompletion 非流式：缓冲完整响应后一次性返回
func (s *Server) collectCompletion(c *gin.Context, req *types.ChatCompletionRequest, cred *pool.Credential, body io.Reader) {
	reasoning, answer, err := bridge.Collect(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// 客户端断开不算凭证失败，也无需再写响应
			s.pool.Report(cred, pool.OutcomeSuccess)
			return
		}
		logger.Warn("非流式响应收集失败: %v", err)
		metrics.UpstreamFailuresTotal.WithLabelValues("collect").Inc()
		s.pool.Report(cred, pool.OutcomeTransientFailure)
		writeGatewayError(c, err)
		return
	}

	s.pool.Report(cred, pool.OutcomeSuccess)
	content := bridge.FilterContent(reasoning, answer, s.config.Gateway.ShowThinkTags)

	promptTokens := 0
	for _, msg := range req.Messages {
		promptTokens += estimateTokens(msg.Content)
	}
	completionTokens := estimateTokens(content)

	c.JSON(200, types.ChatCompletionResponse{
		ID:      bridge.NewCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   s.config.Upstream.ModelName,
		Choices: []types.Choice{
			{
				Index:        0,
				Message:      types.Message{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: types.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

// reportFailure 将上游调用错误映射为凭证池的结果上报
func (s *Server) reportFailure(cred *pool.Credential, err error) {
	var upErr *upstream.Error
	if errors.As(err, &upErr) && upErr.Kind == upstream.FailureAuth {
		logger.Warn("凭证认证失败: %s", logger.MaskToken(cred.Token()))
		metrics.UpstreamFailuresTotal.WithLabelValues("auth").Inc()
		s.pool.Report(cred, pool.OutcomeAuthFailure)
		return
	}

	logger.Warn("上游调用失败: %v", err)
	metrics.UpstreamFailuresTotal.WithLabelValues("transient").Inc()
	s.pool.Report(cred, pool.OutcomeTransientFailure)
}

// estimateTokens 粗略估算token数（上游不返回usage）
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// statusCounts 凭证状态统计转换为metrics标签
func statusCounts(p *pool.Pool) map[string]int {
	counts := map[string]int{}
	for status, count := range p.Statuses() {
		counts[string(status)] = count
	}
	return counts
}

// writeError 写出网关错误响应
func writeError(c *gin.Context, err *types.GatewayError) {
	c.JSON(err.Status, gin.H{
		"error": gin.H{
			"type":    err.Type,
			"message": err.Message,
		},
		"timestamp": time.Now().Unix(),
	})
}

// writeGatewayError 写出任意错误，非GatewayError的按内部错误处理
func writeGatewayError(c *gin.Context, err error) {
	var gwErr *types.GatewayError
	if errors.As(err, &gwErr) {
		writeError(c, gwErr)
		return
	}
	writeError(c, &types.GatewayError{
		Type:    types.ErrorTypeInternal,
		Message: "Internal server error",
		Status:  500,
	})
}
