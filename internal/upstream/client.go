package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// FailureKind - 上游调用失败分类
type FailureKind string

const (
	FailureAuth      FailureKind = "auth"      // 401/403，token无效或过期
	FailureTransient FailureKind = "transient" // 连接失败或其他非200状态
)

// Error - 上游调用失败
// Kind用于驱动凭证池的状态上报，Status是上游返回的HTTP状态码（连接失败时为0）
type Error struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s failure: status=%d", e.Kind, e.Status)
	}
	return fmt.Sprintf("upstream %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client - Z.AI上游客户端
// 负责请求翻译（OpenAI格式 → Z.AI格式）和流式调用，上游只有流式一种传输方式
type Client struct {
	baseURL    string
	model      string // 上游内部模型ID
	modelName  string // 对外模型名，填入model_item
	httpClient *http.Client
}

// NewClient 创建上游客户端
func NewClient(cfg *types.UpstreamConfig) *Client {
	streamTimeout := 5 * time.Minute
	if cfg.StreamTimeout > 0 {
		streamTimeout = time.Duration(cfg.StreamTimeout) * time.Second
	}

	connectTimeout := 10 * time.Second
	if cfg.ConnectTimeout > 0 {
		connectTimeout = time.Duration(cfg.ConnectTimeout) * time.Second
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		modelName: cfg.ModelName,
		httpClient: &http.Client{
			Timeout: streamTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// ValidateRequest 校验入站请求
// 在消耗任何凭证之前调用，缺少必填字段直接拒绝
func ValidateRequest(req *types.ChatCompletionRequest) error {
	if req.Model == "" {
		return types.NewInvalidRequestError("model is required")
	}
	if len(req.Messages) == 0 {
		return types.NewInvalidRequestError("messages cannot be empty")
	}
	for i, msg := range req.Messages {
		if msg.Role == "" {
			return types.NewInvalidRequestError(fmt.Sprintf("messages[%d].role is required", i))
		}
	}
	return nil
}

// buildBody 构建Z.AI请求体
// 无论客户端是否要流式，都向上游请求流式（上游只支持流式传输），
// 非流式行为由bridge在网关侧合成
func (c *Client) buildBody(req *types.ChatCompletionRequest) *types.UpstreamRequest {
	params := map[string]interface{}{}
	if req.Temperature != nil {
		params["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		params["top_p"] = *req.TopP
	}
	if req.MaxTokens > 0 {
		params["max_tokens"] = req.MaxTokens
	}

	return &types.UpstreamRequest{
		Stream:   true,
		Model:    c.model,
		Messages: req.Messages,
		BackgroundTasks: map[string]bool{
			"title_generation": false,
			"tags_generation":  false,
		},
		ChatID: uuid.NewString(),
		Features: map[string]bool{
			"image_generation": false,
			"code_interpreter": false,
			"web_search":       false,
			"auto_web_search":  false,
		},
		ID:         uuid.NewString(),
		MCPServers: []string{},
		ModelItem: types.UpstreamModelItem{
			ID:      c.model,
			Name:    c.modelName,
			OwnedBy: "openai",
		},
		Params:      params,
		ToolServers: []interface{}{},
		Variables: map[string]string{
			"{{USER_NAME}}":        "User",
			"{{USER_LOCATION}}":    "Unknown",
			"{{CURRENT_DATETIME}}": time.Now().Format("2006-01-02 15:04:05"),
		},
	}
}

// BuildRequest 构建上游HTTP请求，绑定一个凭证token作为Bearer认证
func (c *Client) BuildRequest(ctx context.Context, req *types.ChatCompletionRequest, token string) (*http.Request, error) {
	body, err := json.Marshal(c.buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	c.setHeaders(httpReq, token)
	return httpReq, nil
}

// setHeaders 设置浏览器伪装头部
// Z.AI是面向浏览器的接口，缺少这些头部会被拒绝
func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set("Accept-Language", "zh-CN")
	req.Header.Set("sec-ch-ua", `"Not)A;Brand";v="8", "Chromium";v="138", "Google Chrome";v="138"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"macOS"`)
	req.Header.Set("x-fe-version", "prod-fe-1.0.53")
	req.Header.Set("Origin", "https://chat.z.ai")
	req.Header.Set("Referer", "https://chat.z.ai/")
}

// Open 发起上游流式调用，返回响应体供bridge消费
// 调用方负责关闭返回的body；错误已按失败类型分类
func (c *Client) Open(ctx context.Context, req *types.ChatCompletionRequest, token string) (io.ReadCloser, error) {
	httpReq, err := c.BuildRequest(ctx, req, token)
	if err != nil {
		return nil, &Error{Kind: FailureTransient, Err: err}
	}

	logger.Debug("发送上游请求: %s, 凭证: %s", c.baseURL, logger.MaskToken(token))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: FailureTransient, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		kind := FailureTransient
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = FailureAuth
		}
		return nil, &Error{Kind: kind, Status: resp.StatusCode}
	}

	return resp.Body, nil
}

// Probe 用最小化请求探测token是否有效
// 实现pool.Prober接口
func (c *Client) Probe(ctx context.Context, token string) bool {
	req := &types.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: []types.Message{{Role: "user", Content: "hi"}},
	}

	body, err := c.Open(ctx, req, token)
	if err != nil {
		logger.Debug("凭证探测失败: %s: %v", logger.MaskToken(token), err)
		return false
	}

	// 只关心状态码，响应内容直接丢弃
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
	return true
}
