package pool

import (
	"sync"
	"testing"
	"time"
)

func TestAcquireRoundRobin(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b", "token-c"}, 3)

	// 连续获取应按轮询顺序循环
	expected := []string{"token-a", "token-b", "token-c", "token-a", "token-b", "token-c"}
	for i, want := range expected {
		cred, err := p.Acquire()
		if err != nil {
			t.Fatalf("第%d次获取失败: %v", i, err)
		}
		if cred.Token() != want {
			t.Errorf("第%d次获取 = %s, 期望 %s", i, cred.Token(), want)
		}
	}
}

func TestAcquireEmptyPool(t *testing.T) {
	p := NewPool(nil, 3)
	if _, err := p.Acquire(); err != ErrNoCredentialAvailable {
		t.Errorf("空池获取错误 = %v, 期望 ErrNoCredentialAvailable", err)
	}
}

func TestReportFailureTransitions(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]

	// 第一次失败: healthy → suspect
	p.Report(cred, OutcomeAuthFailure)
	if cred.Status() != StatusSuspect {
		t.Errorf("1次失败后状态 = %s, 期望 suspect", cred.Status())
	}

	// 第二次失败: 仍为suspect
	p.Report(cred, OutcomeTransientFailure)
	if cred.Status() != StatusSuspect {
		t.Errorf("2次失败后状态 = %s, 期望 suspect", cred.Status())
	}

	// 第三次失败达到阈值: suspect → dead
	p.Report(cred, OutcomeAuthFailure)
	if cred.Status() != StatusDead {
		t.Errorf("3次失败后状态 = %s, 期望 dead", cred.Status())
	}
}

func TestReportSuccessResets(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]

	p.Report(cred, OutcomeTransientFailure)
	p.Report(cred, OutcomeTransientFailure)
	p.Report(cred, OutcomeSuccess)

	if cred.Status() != StatusHealthy {
		t.Errorf("成功后状态 = %s, 期望 healthy", cred.Status())
	}
	if cred.Failures() != 0 {
		t.Errorf("成功后失败计数 = %d, 期望 0", cred.Failures())
	}

	// 失败计数已重置，再失败两次不应标记为dead
	p.Report(cred, OutcomeTransientFailure)
	p.Report(cred, OutcomeTransientFailure)
	if cred.Status() != StatusSuspect {
		t.Errorf("重置后2次失败状态 = %s, 期望 suspect", cred.Status())
	}
}

func TestAcquireSkipsDead(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b"}, 3)
	dead := p.Credentials()[0]

	// token-a连续失败3次标记为dead
	for i := 0; i < 3; i++ {
		p.Report(dead, OutcomeAuthFailure)
	}

	// 之后所有获取都不应返回dead凭证
	for i := 0; i < 10; i++ {
		cred, err := p.Acquire()
		if err != nil {
			t.Fatalf("获取失败: %v", err)
		}
		if cred.Token() == "token-a" {
			t.Fatal("获取到了dead凭证")
		}
	}
}

func TestAcquireRotatesPastSkipped(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b", "token-c"}, 3)
	dead := p.Credentials()[0]
	for i := 0; i < 3; i++ {
		p.Report(dead, OutcomeAuthFailure)
	}

	// 跳过dead凭证后游标应推进到已返回凭证之后：
	// 剩余两个healthy凭证交替被选中，不会连续返回同一个
	counts := map[string]int{}
	var prev string
	for i := 0; i < 6; i++ {
		cred, err := p.Acquire()
		if err != nil {
			t.Fatalf("第%d次获取失败: %v", i, err)
		}
		if cred.Token() == prev {
			t.Errorf("第%d次连续获取到同一凭证 %s", i, prev)
		}
		prev = cred.Token()
		counts[cred.Token()]++
	}

	if counts["token-b"] != 3 || counts["token-c"] != 3 {
		t.Errorf("负载分布 = %v, 期望 token-b和token-c各3次", counts)
	}
}

func TestAcquireSuspectFallback(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b"}, 3)
	credA := p.Credentials()[0]
	credB := p.Credentials()[1]

	// 两个凭证都标记为suspect，token-a失败时间更早
	p.Report(credA, OutcomeTransientFailure)
	time.Sleep(5 * time.Millisecond)
	p.Report(credB, OutcomeTransientFailure)

	// 没有healthy时回退到最早失败的suspect
	cred, err := p.Acquire()
	if err != nil {
		t.Fatalf("获取失败: %v", err)
	}
	if cred.Token() != "token-a" {
		t.Errorf("回退凭证 = %s, 期望最早失败的 token-a", cred.Token())
	}
}

func TestAcquireAllDead(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b"}, 3)
	for _, cred := range p.Credentials() {
		for i := 0; i < 3; i++ {
			p.Report(cred, OutcomeAuthFailure)
		}
	}

	if _, err := p.Acquire(); err != ErrNoCredentialAvailable {
		t.Errorf("全dead池获取错误 = %v, 期望 ErrNoCredentialAvailable", err)
	}
}

func TestProbePromotion(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]

	for i := 0; i < 3; i++ {
		p.Report(cred, OutcomeAuthFailure)
	}
	if cred.Status() != StatusDead {
		t.Fatalf("前置状态 = %s, 期望 dead", cred.Status())
	}

	// 探测成功逐级晋升: dead → suspect → healthy
	p.ReportProbe(cred, true)
	if cred.Status() != StatusSuspect {
		t.Errorf("第一次探测成功后状态 = %s, 期望 suspect", cred.Status())
	}

	p.ReportProbe(cred, true)
	if cred.Status() != StatusHealthy {
		t.Errorf("第二次探测成功后状态 = %s, 期望 healthy", cred.Status())
	}

	// 恢复后应可被正常获取
	acquired, err := p.Acquire()
	if err != nil {
		t.Fatalf("恢复后获取失败: %v", err)
	}
	if acquired.Token() != "token-a" {
		t.Errorf("恢复后获取 = %s, 期望 token-a", acquired.Token())
	}
}

func TestProbeFailureDoesNotDemote(t *testing.T) {
	p := NewPool([]string{"token-a"}, 3)
	cred := p.Credentials()[0]

	p.Report(cred, OutcomeTransientFailure)

	// 探测失败只更新检查时间，不驱动状态降级
	p.ReportProbe(cred, false)
	if cred.Status() != StatusSuspect {
		t.Errorf("探测失败后状态 = %s, 期望 suspect不变", cred.Status())
	}
	if cred.LastHealthCheck().IsZero() {
		t.Error("探测后应更新检查时间")
	}
}

func TestStatuses(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b", "token-c"}, 3)
	p.Report(p.Credentials()[1], OutcomeTransientFailure)
	for i := 0; i < 3; i++ {
		p.Report(p.Credentials()[2], OutcomeAuthFailure)
	}

	counts := p.Statuses()
	if counts[StatusHealthy] != 1 || counts[StatusSuspect] != 1 || counts[StatusDead] != 1 {
		t.Errorf("状态统计 = %v, 期望各1个", counts)
	}
}

func TestConcurrentAcquire(t *testing.T) {
	p := NewPool([]string{"token-a", "token-b", "token-c"}, 3)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cred, err := p.Acquire()
				if err != nil {
					t.Errorf("并发获取失败: %v", err)
					return
				}
				if j%10 == 0 {
					p.Report(cred, OutcomeTransientFailure)
				} else {
					p.Report(cred, OutcomeSuccess)
				}
			}
		}()
	}
	wg.Wait()
}
