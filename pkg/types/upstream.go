package types

// UpstreamRequest - Z.AI上游请求格式
// 字段结构来自chat.z.ai实际抓包格式，缺少任何一个字段上游都可能拒绝请求
type UpstreamRequest struct {
	Stream          bool                   `json:"stream"`
	Model           string                 `json:"model"`
	Messages        []Message              `json:"messages"`
	BackgroundTasks map[string]bool        `json:"background_tasks"`
	ChatID          string                 `json:"chat_id"`
	Features        map[string]bool        `json:"features"`
	ID              string                 `json:"id"`
	MCPServers      []string               `json:"mcp_servers"`
	ModelItem       UpstreamModelItem      `json:"model_item"`
	Params          map[string]interface{} `json:"params"`
	ToolServers     []interface{}          `json:"tool_servers"`
	Variables       map[string]string      `json:"variables"`
}

// UpstreamModelItem - 上游model_item字段
type UpstreamModelItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnedBy string `json:"owned_by"`
}

// UpstreamEvent - Z.AI流式事件
// 上游的SSE data行解析结果，内容增量在data.delta_content中，
// phase区分thinking（推理）和answer（回答）两个阶段
type UpstreamEvent struct {
	Type  string            `json:"type,omitempty"`
	Data  UpstreamEventData `json:"data"`
	Error *UpstreamError    `json:"error,omitempty"`
}

// UpstreamEventData - 流式事件数据
type UpstreamEventData struct {
	ID           string         `json:"id,omitempty"`
	DeltaContent string         `json:"delta_content"`
	Phase        string         `json:"phase"`
	Done         bool           `json:"done,omitempty"`
	Error        *UpstreamError `json:"error,omitempty"`
}

// UpstreamError - 上游错误信息
type UpstreamError struct {
	Code   int    `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// 上游phase取值
const (
	PhaseThinking = "thinking"
	PhaseAnswer   = "answer"
	PhaseDone     = "done"
)
