package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v2"

	"github.com/jianglinzhang/Z2API/pkg/types"
)

// ConfigManager 配置管理器
// 启动时加载一次，之后配置视为不可变输入
type ConfigManager struct {
	configPath string
	config     *types.Config
	mutex      sync.RWMutex
}

// NewConfigManager 创建新的配置管理器
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load 加载配置文件并应用环境变量覆盖
func (m *ConfigManager) Load() (*types.Config, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	config := m.createDefaultConfig()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		// 配置文件不存在时写出默认配置，之后完全依赖环境变量
		if os.IsNotExist(err) {
			if err := m.saveUnsafe(config); err != nil {
				return nil, fmt.Errorf("创建默认配置文件失败: %w", err)
			}
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(config)

	m.config = config
	return config, nil
}

// saveUnsafe 不加锁的保存方法（内部使用）
func (m *ConfigManager) saveUnsafe(config *types.Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	// 确保目录存在
	if dir := filepath.Dir(m.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	// 配置中含有上游token，限制文件权限
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Get 获取当前配置
func (m *ConfigManager) Get() *types.Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.config
}

// Validate 验证配置有效性
func (m *ConfigManager) Validate() error {
	if m.config == nil {
		return fmt.Errorf("配置未加载")
	}

	if m.config.Server.Port <= 0 || m.config.Server.Port > 65535 {
		return fmt.Errorf("无效的端口号: %d", m.config.Server.Port)
	}

	if m.config.Server.Host == "" {
		return fmt.Errorf("服务器地址不能为空")
	}

	if m.config.Gateway.APIKey == "" {
		return fmt.Errorf("API Key不能为空")
	}

	if m.config.Upstream.BaseURL == "" {
		return fmt.Errorf("上游地址不能为空")
	}

	// 允许空token列表：服务可以启动，但请求会因凭证池耗尽而失败
	if len(m.config.Pool.Tokens) == 0 {
		fmt.Println("警告: 未配置任何Z.AI token，请设置Z_AI_COOKIES环境变量")
	}

	return nil
}

// createDefaultConfig 创建默认配置
func (m *ConfigManager) createDefaultConfig() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30,
		},
		Gateway: types.GatewayConfig{
			APIKey:               "sk-z2api-key-2024",
			DefaultStream:        false,
			ShowThinkTags:        false,
			MaxRequestsPerMinute: 60,
		},
		Upstream: types.UpstreamConfig{
			BaseURL:        "https://chat.z.ai/api/chat/completions",
			Model:          "0727-360B-API",
			ModelName:      "GLM-4.5",
			StreamTimeout:  300,
			ConnectTimeout: 10,
		},
		Pool: types.PoolConfig{
			Tokens:               []string{},
			DeadThreshold:        3,
			ProbeIntervalSeconds: 300,
		},
		Logging: types.LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// applyEnvOverrides 应用环境变量覆盖
// 环境变量优先级高于配置文件，变量名与原始部署方式保持兼容
func applyEnvOverrides(config *types.Config) {
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if key := os.Getenv("API_KEY"); key != "" {
		config.Gateway.APIKey = key
	}
	if cookies := os.Getenv("Z_AI_COOKIES"); cookies != "" {
		config.Pool.Tokens = splitTokens(cookies)
	}
	if v := os.Getenv("SHOW_THINK_TAGS"); v != "" {
		config.Gateway.ShowThinkTags = parseBool(v)
	}
	if v := os.Getenv("DEFAULT_STREAM"); v != "" {
		config.Gateway.DefaultStream = parseBool(v)
	}
	if v := os.Getenv("MAX_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Gateway.MaxRequestsPerMinute = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		config.Upstream.BaseURL = v
	}
}

// splitTokens 解析逗号分隔的token列表
func splitTokens(s string) []string {
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// parseBool 解析布尔环境变量，兼容true/1/yes/on
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
