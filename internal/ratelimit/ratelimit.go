package ratelimit

import (
	"sync"
	"time"
)

// Limiter - 滑动窗口限流器
// 网关级的每分钟请求数上限，独立于凭证轮换；
// 被拒绝的请求立即失败，不排队等待，也不消耗凭证
type Limiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	timestamps []time.Time
	now        func() time.Time // 可注入时钟，便于测试
}

// NewLimiter 创建每分钟limit次请求的限流器
// limit <= 0 表示不限流
func NewLimiter(limit int) *Limiter {
	return NewLimiterWithWindow(limit, time.Minute)
}

// NewLimiterWithWindow 创建自定义窗口的限流器
func NewLimiterWithWindow(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow 判断当前请求是否放行，放行时记入窗口
func (l *Limiter) Allow() bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.timestamps) >= l.limit {
		return false
	}

	l.timestamps = append(l.timestamps, now)
	return true
}

// Remaining 当前窗口内剩余配额
func (l *Limiter) Remaining() int {
	if l.limit <= 0 {
		return -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.limit - len(l.timestamps)
}

// prune 淘汰滑出窗口的记录，调用方必须持有锁
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.timestamps); i++ {
		if l.timestamps[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		l.timestamps = l.timestamps[i:]
	}
}
