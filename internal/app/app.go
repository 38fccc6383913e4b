package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jianglinzhang/Z2API/internal/config"
	"github.com/jianglinzhang/Z2API/internal/metrics"
	"github.com/jianglinzhang/Z2API/internal/pool"
	"github.com/jianglinzhang/Z2API/internal/server"
	"github.com/jianglinzhang/Z2API/internal/upstream"
	"github.com/jianglinzhang/Z2API/pkg/logger"
	"github.com/jianglinzhang/Z2API/pkg/types"
)

// Application 应用程序主结构，负责组件装配和生命周期
type Application struct {
	config   *types.Config
	pool     *pool.Pool
	upstream *upstream.Client
	prober   *pool.HealthProber
	server   *server.Server
}

// NewApplication 创建并装配应用程序
func NewApplication(configPath string) (*Application, error) {
	manager := config.NewConfigManager(configPath)
	cfg, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	logger.SetLevelFromString(cfg.Logging.Level)
	logger.EnableDebugFromEnv()

	credPool := pool.NewPool(cfg.Pool.Tokens, cfg.Pool.DeadThreshold)
	client := upstream.NewClient(&cfg.Upstream)

	probeInterval := time.Duration(cfg.Pool.ProbeIntervalSeconds) * time.Second
	prober := pool.NewHealthProber(credPool, client, probeInterval)

	srv := server.NewServer(cfg, credPool, client)

	logger.Info("凭证池初始化完成，共%d个凭证", credPool.Len())

	return &Application{
		config:   cfg,
		pool:     credPool,
		upstream: client,
		prober:   prober,
		server:   srv,
	}, nil
}

// Start 启动应用（阻塞直到服务器退出）
func (a *Application) Start() error {
	if err := a.prober.Start(); err != nil {
		return err
	}

	// 启动时上报一次凭证池初始状态
	counts := map[string]int{}
	for status, count := range a.pool.Statuses() {
		counts[string(status)] = count
	}
	metrics.SetCredentialStatus(counts)

	return a.server.Start()
}

// Stop 优雅停止应用
func (a *Application) Stop(ctx context.Context) error {
	a.prober.Stop()
	return a.server.Stop(ctx)
}

// Config 返回当前配置
func (a *Application) Config() *types.Config {
	return a.config
}
