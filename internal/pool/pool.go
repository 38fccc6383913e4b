package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoCredentialAvailable 凭证池中没有任何可用凭证
var ErrNoCredentialAvailable = errors.New("no credential available")

// Status - 凭证健康状态
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusSuspect Status = "suspect"
	StatusDead    Status = "dead"
)

// Outcome - 一次上游调用的结果，由请求路径上报给凭证池
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeAuthFailure      Outcome = "auth_failure"
	OutcomeTransientFailure Outcome = "transient_failure"
)

// Credential - 一个上游token及其健康状态
// 字段更新在自身锁内完成，调用方不会观察到status和failures的中间状态
type Credential struct {
	mu              sync.Mutex
	token           string
	status          Status
	failures        int
	lastUsedAt      time.Time
	lastFailureAt   time.Time
	lastHealthCheck time.Time
}

// Token 获取token值
func (c *Credential) Token() string {
	return c.token
}

// Status 获取当前健康状态
func (c *Credential) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Failures 获取连续失败次数
func (c *Credential) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// LastHealthCheck 获取最近一次健康检查时间
func (c *Credential) LastHealthCheck() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHealthCheck
}

func (c *Credential) touch() {
	c.mu.Lock()
	c.lastUsedAt = time.Now()
	c.mu.Unlock()
}

// Pool - 固定大小的凭证池，带轮询游标
// 凭证在初始化时创建，之后只会改变状态，不会增删
type Pool struct {
	creds         []*Credential
	cursor        uint64
	deadThreshold int
}

// DefaultDeadThreshold 连续失败多少次后标记为dead
const DefaultDeadThreshold = 3

// NewPool 创建凭证池
func NewPool(tokens []string, deadThreshold int) *Pool {
	if deadThreshold <= 0 {
		deadThreshold = DefaultDeadThreshold
	}

	creds := make([]*Credential, 0, len(tokens))
	for _, token := range tokens {
		creds = append(creds, &Credential{
			token:  token,
			status: StatusHealthy,
		})
	}

	return &Pool{
		creds:         creds,
		deadThreshold: deadThreshold,
	}
}

// Acquire 获取下一个可用凭证
// 优先从游标位置轮询healthy凭证；没有healthy时回退到最早失败的suspect
// （先试用再判死）；全部dead时立即返回错误，不阻塞等待
func (p *Pool) Acquire() (*Credential, error) {
	n := len(p.creds)
	if n == 0 {
		return nil, ErrNoCredentialAvailable
	}

	// 原子推进游标，多个并发请求各自拿到连续的起点
	start := atomic.AddUint64(&p.cursor, 1) - 1
	for i := 0; i < n; i++ {
		cred := p.creds[(start+uint64(i))%uint64(n)]
		if cred.Status() == StatusHealthy {
			// 扫描中跳过了不可用凭证时，把游标补推到已返回凭证之后，
			// 下一次获取从它的后一个位置开始，避免同一凭证连续被选中
			if i > 0 {
				atomic.AddUint64(&p.cursor, uint64(i))
			}
			cred.touch()
			return cred, nil
		}
	}

	// 回退：选最久没有失败过的suspect凭证
	var fallback *Credential
	var fallbackFailedAt time.Time
	for _, cred := range p.creds {
		cred.mu.Lock()
		if cred.status == StatusSuspect {
			if fallback == nil || cred.lastFailureAt.Before(fallbackFailedAt) {
				fallback = cred
				fallbackFailedAt = cred.lastFailureAt
			}
		}
		cred.mu.Unlock()
	}

	if fallback != nil {
		fallback.touch()
		return fallback, nil
	}

	return nil, ErrNoCredentialAvailable
}

// Report 上报一次上游调用结果，驱动凭证状态迁移
// healthy →(失败)→ suspect →(连续失败达到阈值)→ dead
// success重置失败计数并恢复为healthy
func (p *Pool) Report(cred *Credential, outcome Outcome) {
	cred.mu.Lock()
	defer cred.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		cred.failures = 0
		cred.status = StatusHealthy

	case OutcomeAuthFailure, OutcomeTransientFailure:
		cred.failures++
		cred.lastFailureAt = time.Now()
		if cred.failures >= p.deadThreshold {
			cred.status = StatusDead
		} else {
			cred.status = StatusSuspect
		}
	}
}

// ReportProbe 上报一次健康探测结果
// 探测成功: dead → suspect → healthy（单次成功即晋升一级）
// 探测失败不降级，状态迁移只由真实请求失败驱动
func (p *Pool) ReportProbe(cred *Credential, ok bool) {
	cred.mu.Lock()
	defer cred.mu.Unlock()

	cred.lastHealthCheck = time.Now()
	if !ok {
		return
	}

	cred.failures = 0
	switch cred.status {
	case StatusDead:
		cred.status = StatusSuspect
	case StatusSuspect:
		cred.status = StatusHealthy
	}
}

// Credentials 返回池中全部凭证（固定集合，供探测器遍历）
func (p *Pool) Credentials() []*Credential {
	return p.creds
}

// Len 池大小
func (p *Pool) Len() int {
	return len(p.creds)
}

// Statuses 按状态统计凭证数量
func (p *Pool) Statuses() map[Status]int {
	counts := map[Status]int{
		StatusHealthy: 0,
		StatusSuspect: 0,
		StatusDead:    0,
	}
	for _, cred := range p.creds {
		counts[cred.Status()]++
	}
	return counts
}
