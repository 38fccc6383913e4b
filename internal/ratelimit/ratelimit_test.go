package ratelimit

import (
	"testing"
	"time"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(limit int) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewLimiter(limit)
	limiter.now = clock.now
	return limiter, clock
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("第%d次请求应放行", i+1)
		}
	}
	// 超出上限立即拒绝
	if limiter.Allow() {
		t.Error("第4次请求应被拒绝")
	}
}

func TestWindowSlides(t *testing.T) {
	limiter, clock := newTestLimiter(2)

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("前两次请求应放行")
	}
	if limiter.Allow() {
		t.Fatal("第三次请求应被拒绝")
	}

	// 窗口滑过后配额恢复
	clock.advance(61 * time.Second)
	if !limiter.Allow() {
		t.Error("窗口滑过后请求应放行")
	}
}

func TestPartialWindowSlide(t *testing.T) {
	limiter, clock := newTestLimiter(2)

	limiter.Allow()
	clock.advance(30 * time.Second)
	limiter.Allow()

	// 第一条记录还在窗口内
	if limiter.Allow() {
		t.Error("窗口未滑过，应被拒绝")
	}

	// 只有第一条记录滑出窗口
	clock.advance(31 * time.Second)
	if !limiter.Allow() {
		t.Error("第一条记录滑出后应放行一次")
	}
	if limiter.Allow() {
		t.Error("配额只恢复一个")
	}
}

func TestUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(0)

	// limit<=0表示不限流
	for i := 0; i < 1000; i++ {
		if !limiter.Allow() {
			t.Fatal("不限流模式不应拒绝任何请求")
		}
	}
	if limiter.Remaining() != -1 {
		t.Errorf("Remaining() = %d, 期望 -1", limiter.Remaining())
	}
}

func TestRemaining(t *testing.T) {
	limiter, _ := newTestLimiter(5)

	if limiter.Remaining() != 5 {
		t.Errorf("初始Remaining() = %d, 期望 5", limiter.Remaining())
	}
	limiter.Allow()
	limiter.Allow()
	if limiter.Remaining() != 3 {
		t.Errorf("Remaining() = %d, 期望 3", limiter.Remaining())
	}
}
