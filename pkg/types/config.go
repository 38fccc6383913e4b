package types

// Config - 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Pool     PoolConfig     `yaml:"pool"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig - HTTP服务器配置
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Timeout int    `yaml:"timeout_seconds"`
}

// GatewayConfig - 网关行为配置
type GatewayConfig struct {
	APIKey               string `yaml:"api_key"`
	DefaultStream        bool   `yaml:"default_stream"`
	ShowThinkTags        bool   `yaml:"show_think_tags"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
}

// UpstreamConfig - Z.AI上游配置
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`      // 上游内部模型ID
	ModelName      string `yaml:"model_name"` // 对外暴露的模型名
	StreamTimeout  int    `yaml:"stream_timeout_seconds"`
	ConnectTimeout int    `yaml:"connect_timeout_seconds"`
}

// PoolConfig - 凭证池配置
type PoolConfig struct {
	Tokens               []string `yaml:"tokens"`
	DeadThreshold        int      `yaml:"dead_threshold"`
	ProbeIntervalSeconds int      `yaml:"probe_interval_seconds"`
}

// LoggingConfig - 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}
