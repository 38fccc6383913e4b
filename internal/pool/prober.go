package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jianglinzhang/Z2API/pkg/logger"
)

// Prober 探测接口，由上游客户端实现
// 只发最小化的合成请求验证token是否仍然有效
type Prober interface {
	Probe(ctx context.Context, token string) bool
}

// DefaultProbeInterval 默认探测间隔
const DefaultProbeInterval = 5 * time.Minute

// probeTimeout 单次探测超时
const probeTimeout = 15 * time.Second

// HealthProber - 定时健康探测器
// 独立于请求路径运行，只通过Pool的ReportProbe接口更新凭证状态
type HealthProber struct {
	pool     *Pool
	prober   Prober
	interval time.Duration
	cron     *cron.Cron
}

// NewHealthProber 创建健康探测器
func NewHealthProber(p *Pool, prober Prober, interval time.Duration) *HealthProber {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthProber{
		pool:     p,
		prober:   prober,
		interval: interval,
	}
}

// Start 启动定时探测
func (h *HealthProber) Start() error {
	if h.cron != nil {
		return nil
	}

	h.cron = cron.New()
	spec := fmt.Sprintf("@every %s", h.interval)
	if _, err := h.cron.AddFunc(spec, h.RunOnce); err != nil {
		return fmt.Errorf("注册健康探测任务失败: %w", err)
	}

	h.cron.Start()
	logger.Info("健康探测器已启动，探测间隔: %s", h.interval)
	return nil
}

// Stop 停止探测并等待执行中的任务结束
func (h *HealthProber) Stop() {
	if h.cron == nil {
		return
	}
	ctx := h.cron.Stop()
	<-ctx.Done()
	logger.Info("健康探测器已停止")
}

// RunOnce 探测一轮全部非healthy凭证
// 探测失败只记录日志，不影响进程和请求路径
func (h *HealthProber) RunOnce() {
	for _, cred := range h.pool.Credentials() {
		if cred.Status() == StatusHealthy {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		ok := h.prober.Probe(ctx, cred.Token())
		cancel()

		h.pool.ReportProbe(cred, ok)
		if ok {
			logger.Info("凭证探测通过，已恢复: %s -> %s", logger.MaskToken(cred.Token()), cred.Status())
		} else {
			logger.Debug("凭证探测仍然失败: %s", logger.MaskToken(cred.Token()))
		}
	}
}
