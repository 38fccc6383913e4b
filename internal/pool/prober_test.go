package pool

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeProber 记录探测调用，按预设结果应答
type fakeProber struct {
	mu      sync.Mutex
	results map[string]bool
	probed  []string
}

func (f *fakeProber) Probe(_ context.Context, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, token)
	return f.results[token]
}

func (f *fakeProber) probedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probed...)
}

func TestRunOnceSkipsHealthy(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b"}, 3)
	p.Report(p.Credentials()[1], OutcomeTransientFailure)

	fake := &fakeProber{results: map[string]bool{"token-b": true}}
	prober := NewHealthProber(p, fake, time.Minute)
	prober.RunOnce()

	// healthy凭证不需要探测
	probed := fake.probedTokens()
	if len(probed) != 1 || probed[0] != "token-b" {
		t.Errorf("探测了 %v, 期望只探测 [token-b]", probed)
	}
}

func TestRunOnceRecoversCredential(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]
	for i := 0; i < 3; i++ {
		p.Report(cred, OutcomeAuthFailure)
	}

	fake := &fakeProber{results: map[string]bool{"token-a": true}}
	prober := NewHealthProber(p, fake, time.Minute)

	// 两轮探测成功: dead → suspect → healthy
	prober.RunOnce()
	if cred.Status() != StatusSuspect {
		t.Fatalf("一轮探测后状态 = %s, 期望 suspect", cred.Status())
	}
	prober.RunOnce()
	if cred.Status() != StatusHealthy {
		t.Fatalf("两轮探测后状态 = %s, 期望 healthy", cred.Status())
	}
}

func TestRunOnceProbeFailureKeepsStatus(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]
	p.Report(cred, OutcomeTransientFailure)

	fake := &fakeProber{results: map[string]bool{}}
	prober := NewHealthProber(p, fake, time.Minute)
	prober.RunOnce()

	if cred.Status() != StatusSuspect {
		t.Errorf("探测失败后状态 = %s, 期望 suspect不变", cred.Status())
	}
}

func TestProberStartStop(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	fake := &fakeProber{results: map[string]bool{}}
	prober := NewHealthProber(p, fake, time.Hour)

	if err := prober.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	// 重复启动应为空操作
	if err := prober.Start(); err != nil {
		t.Fatalf("重复启动失败: %v", err)
	}
	prober.Stop()
}
