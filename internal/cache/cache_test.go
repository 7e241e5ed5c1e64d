package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestCacheTTL(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)}
	c := New[[]string](4*time.Hour, clk.Now)

	if _, ok := c.Get(); ok {
		t.Fatal("空缓存不应命中")
	}

	c.Set([]string{"a", "b"})
	clk.Advance(3*time.Hour + 59*time.Minute)
	got, ok := c.Get()
	if !ok || len(got) != 2 {
		t.Fatalf("TTL 内应命中: %v %v", got, ok)
	}

	clk.Advance(time.Minute)
	if _, ok := c.Get(); ok {
		t.Fatal("超过 TTL 后不应命中")
	}
	entry, ok := c.Entry()
	if !ok || entry.TTL != 4*time.Hour || len(entry.Data) != 2 {
		t.Fatalf("过期后仍应保留最后一次的条目: %+v", entry)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := New[int](time.Hour, nil)
	c.Set(7)
	c.Invalidate()
	if _, ok := c.Get(); ok {
		t.Fatal("失效后不应命中")
	}
	if _, ok := c.Entry(); ok {
		t.Fatal("失效后不应有条目")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](time.Hour, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			c.Set(v)
		}(i)
		go func() {
			defer wg.Done()
			c.Get()
		}()
	}
	wg.Wait()
	if _, ok := c.Get(); !ok {
		t.Fatal("并发写入后应命中")
	}
}
